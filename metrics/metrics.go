// Package metrics holds the Prometheus collectors for the record store and
// the submission endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceCache   = "cache"
	SourceBackend = "backend"

	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
)

var (
	StoreLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_stats_store_loads_total",
			Help: "Table loads by source (cache or backend) and result",
		},
		[]string{"source", "result"},
	)

	StoreSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_stats_store_saves_total",
			Help: "Table writes to the backend by result",
		},
		[]string{"result"},
	)

	Observations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_stats_observations_total",
			Help: "Submitted observations by outcome",
		},
		[]string{"result"},
	)

	Records = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "admit_stats_records",
			Help: "Number of records in the cached table",
		},
	)
)

// RecordLoad counts one table load.
func RecordLoad(source string, err error) {
	StoreLoads.WithLabelValues(source, result(err)).Inc()
}

// RecordSave counts one backend write.
func RecordSave(err error) {
	StoreSaves.WithLabelValues(result(err)).Inc()
}

// RecordObservation counts one submission outcome.
func RecordObservation(outcome string) {
	Observations.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
