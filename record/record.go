// Package record defines program records, the table that holds them and the
// running-average fold applied to each new observation.
package record

import (
	"github.com/goccy/go-json"
)

// Metric names one tracked admission statistic.
type Metric string

const (
	GMAT       Metric = "gmat"
	GRE        Metric = "gre"
	Experience Metric = "experience"
	GPA        Metric = "gpa"
	TOEFL      Metric = "toefl"
	IELTS      Metric = "ielts"
)

// Metrics lists every tracked metric in file column order.
var Metrics = []Metric{GMAT, GRE, Experience, GPA, TOEFL, IELTS}

const (
	ColUniversity = "university"
	ColCourse     = "course"
)

// AverageColumn is the column holding the running mean of m.
func (m Metric) AverageColumn() string { return string(m) + "_average" }

// CountColumn is the column holding the sample count of m.
func (m Metric) CountColumn() string { return string(m) + "_count" }

// Required reports whether every observation must carry a sample for m.
func (m Metric) Required() bool { return m == Experience || m == GPA }

// CanonicalColumns returns the key columns followed by an average and count
// column per metric.
func CanonicalColumns() []string {
	cols := make([]string, 0, 2+2*len(Metrics))
	cols = append(cols, ColUniversity, ColCourse)
	for _, m := range Metrics {
		cols = append(cols, m.AverageColumn(), m.CountColumn())
	}
	return cols
}

// IsCanonicalColumn reports whether name is one of CanonicalColumns.
func IsCanonicalColumn(name string) bool {
	if name == ColUniversity || name == ColCourse {
		return true
	}
	for _, m := range Metrics {
		if name == m.AverageColumn() || name == m.CountColumn() {
			return true
		}
	}
	return false
}

// Stat is a running mean and the number of samples folded into it.
// The zero value means the metric has not been observed yet.
type Stat struct {
	Average float64
	Count   int
}

// Key identifies a program.
type Key struct {
	University string
	Course     string
}

// Record is one university/course program with its running averages.
type Record struct {
	University string
	Course     string

	GMAT       Stat
	GRE        Stat
	Experience Stat
	GPA        Stat
	TOEFL      Stat
	IELTS      Stat

	// Extra holds non-standard columns so they survive a round-trip.
	Extra map[string]string
}

func (r *Record) Key() Key {
	return Key{University: r.University, Course: r.Course}
}

func (r *Record) stat(m Metric) *Stat {
	switch m {
	case GMAT:
		return &r.GMAT
	case GRE:
		return &r.GRE
	case Experience:
		return &r.Experience
	case GPA:
		return &r.GPA
	case TOEFL:
		return &r.TOEFL
	case IELTS:
		return &r.IELTS
	}
	return nil
}

// Stat returns the statistic for m, or the zero Stat for an unknown metric.
func (r *Record) Stat(m Metric) Stat {
	if s := r.stat(m); s != nil {
		return *s
	}
	return Stat{}
}

// SetStat replaces the statistic for m. Unknown metrics are ignored.
func (r *Record) SetStat(m Metric, s Stat) {
	if p := r.stat(m); p != nil {
		*p = s
	}
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	if r.Extra != nil {
		extra := make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// MarshalJSON encodes the record flat, with the same field names as the file.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2+2*len(Metrics)+len(r.Extra))
	for k, v := range r.Extra {
		out[k] = v
	}
	out[ColUniversity] = r.University
	out[ColCourse] = r.Course
	for _, m := range Metrics {
		s := r.Stat(m)
		out[m.AverageColumn()] = s.Average
		out[m.CountColumn()] = s.Count
	}
	return json.Marshal(out)
}
