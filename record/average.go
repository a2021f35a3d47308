package record

import (
	"errors"
	"fmt"
	"math"
)

// Fold adds sample x to the running mean s without keeping the history:
//
//	a' = (a*c + x) / (c+1)
//	c' = c + 1
//
// The new mean is kept inside [min(a, x), max(a, x)], where the exact mean
// always lies, so rounding cannot drift it outside the observed range.
func Fold(s Stat, x float64) Stat {
	c := float64(s.Count)
	avg := (s.Average*c + x) / (c + 1)
	if s.Count > 0 {
		lo, hi := math.Min(s.Average, x), math.Max(s.Average, x)
		avg = math.Max(lo, math.Min(hi, avg))
	}
	return Stat{Average: avg, Count: s.Count + 1}
}

// Observation is one submitted data point for a program. Experience and GPA
// are always present; a nil optional metric was not observed.
type Observation struct {
	University string
	Course     string

	Experience float64
	GPA        float64

	GMAT  *float64
	GRE   *float64
	TOEFL *float64
	IELTS *float64
}

func (o Observation) Key() Key {
	return Key{University: o.University, Course: o.Course}
}

// Sample returns the value submitted for m and whether it was submitted.
func (o Observation) Sample(m Metric) (float64, bool) {
	switch m {
	case Experience:
		return o.Experience, true
	case GPA:
		return o.GPA, true
	case GMAT:
		return deref(o.GMAT)
	case GRE:
		return deref(o.GRE)
	case TOEFL:
		return deref(o.TOEFL)
	case IELTS:
		return deref(o.IELTS)
	}
	return 0, false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

var ErrInvalidObservation = errors.New("invalid observation")

// Validate rejects observations that would corrupt a running mean.
func (o Observation) Validate() error {
	if o.University == "" || o.Course == "" {
		return fmt.Errorf("%w: university and course are required", ErrInvalidObservation)
	}
	for _, m := range Metrics {
		x, ok := o.Sample(m)
		if !ok {
			continue
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidObservation, m)
		}
		if x < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidObservation, m)
		}
	}
	return nil
}

// Observe folds every submitted sample of o into r. Metrics o does not carry
// are left untouched.
func (r *Record) Observe(o Observation) {
	for _, m := range Metrics {
		if x, ok := o.Sample(m); ok {
			r.SetStat(m, Fold(r.Stat(m), x))
		}
	}
}
