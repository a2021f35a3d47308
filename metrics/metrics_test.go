package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/stevemurr/admit-stats/metrics"
)

func TestRecordLoad(t *testing.T) {
	ok := metrics.StoreLoads.WithLabelValues(metrics.SourceBackend, metrics.ResultOK)
	failed := metrics.StoreLoads.WithLabelValues(metrics.SourceBackend, metrics.ResultError)
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	metrics.RecordLoad(metrics.SourceBackend, nil)
	metrics.RecordLoad(metrics.SourceBackend, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestRecordSaveAndObservation(t *testing.T) {
	saves := metrics.StoreSaves.WithLabelValues(metrics.ResultError)
	obs := metrics.Observations.WithLabelValues(metrics.ResultNotFound)
	savesBefore, obsBefore := testutil.ToFloat64(saves), testutil.ToFloat64(obs)

	metrics.RecordSave(errors.New("disk full"))
	metrics.RecordObservation(metrics.ResultNotFound)

	assert.Equal(t, savesBefore+1, testutil.ToFloat64(saves))
	assert.Equal(t, obsBefore+1, testutil.ToFloat64(obs))
}
