package record

import (
	"slices"
	"sort"
	"strings"
)

// Table is every record in file order. Columns is the header the table was
// read with; it is empty for tables built in memory.
type Table struct {
	Columns []string
	Records []Record
}

func (t Table) Len() int { return len(t.Records) }

// Find returns the index of the first record matching key.
func (t Table) Find(key Key) (int, bool) {
	for i := range t.Records {
		if t.Records[i].University == key.University && t.Records[i].Course == key.Course {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the first record matching key for in-place update.
func (t *Table) Lookup(key Key) (*Record, bool) {
	i, ok := t.Find(key)
	if !ok {
		return nil, false
	}
	return &t.Records[i], true
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Columns: slices.Clone(t.Columns)}
	if t.Records != nil {
		out.Records = make([]Record, len(t.Records))
		for i, r := range t.Records {
			out.Records[i] = r.Clone()
		}
	}
	return out
}

// Duplicates returns every key held by more than one record, in first-seen
// order.
func (t Table) Duplicates() []Key {
	seen := make(map[Key]int, len(t.Records))
	var dups []Key
	for i := range t.Records {
		k := t.Records[i].Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// Header returns the columns to write: the table's own columns, then any
// missing canonical column, then extra fields not yet covered (sorted).
func (t Table) Header() []string {
	var header []string
	if len(t.Columns) > 0 {
		header = slices.Clone(t.Columns)
	}
	have := make(map[string]bool, len(header))
	for _, c := range header {
		have[c] = true
	}
	for _, c := range CanonicalColumns() {
		if !have[c] {
			header = append(header, c)
			have[c] = true
		}
	}
	var extra []string
	for i := range t.Records {
		for k := range t.Records[i].Extra {
			if !have[k] {
				extra = append(extra, k)
				have[k] = true
			}
		}
	}
	sort.Strings(extra)
	return append(header, extra...)
}

// Courses returns the distinct course names in first-seen order.
func (t Table) Courses() []string {
	return distinct(t.Records, func(r *Record) (string, bool) { return r.Course, true })
}

// Universities returns the distinct university names in first-seen order.
func (t Table) Universities() []string {
	return distinct(t.Records, func(r *Record) (string, bool) { return r.University, true })
}

// CoursesFor returns the distinct courses offered by university.
func (t Table) CoursesFor(university string) []string {
	return distinct(t.Records, func(r *Record) (string, bool) {
		return r.Course, r.University == university
	})
}

// ByCourse returns copies of the records whose course matches course,
// ignoring case and surrounding whitespace.
func (t Table) ByCourse(course string) []Record {
	want := normalize(course)
	var out []Record
	for i := range t.Records {
		if normalize(t.Records[i].Course) == want {
			out = append(out, t.Records[i].Clone())
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func distinct(records []Record, pick func(*Record) (string, bool)) []string {
	seen := make(map[string]bool)
	out := []string{}
	for i := range records {
		v, ok := pick(&records[i])
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
