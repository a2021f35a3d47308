package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stevemurr/admit-stats/record"
)

// CSVFile stores the table as one comma-separated file with a header row.
//
// Layout:
//
//	university,course,gmat_average,gmat_count,...,ielts_count[,extra...]
//	MIT,MBA,715,4,...
type CSVFile struct {
	path string
}

func NewCSVFile(path string) (*CSVFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("csv backend: path is required")
	}
	return &CSVFile{path: path}, nil
}

func (b *CSVFile) Path() string { return b.path }

func (b *CSVFile) String() string { return "csv:" + b.path }

func (b *CSVFile) Close() error { return nil }

// ReadAll parses the whole file. Any unparseable row fails the whole read.
func (b *CSVFile) ReadAll() (record.Table, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return record.Table{}, err
	}
	defer f.Close()
	return decodeCSV(f)
}

// WriteAll replaces the file atomically.
func (b *CSVFile) WriteAll(t record.Table) error {
	data, err := encodeCSV(t)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data, 0o644)
}

func decodeCSV(r io.Reader) (record.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return record.Table{}, nil
	}
	if err != nil {
		return record.Table{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			return record.Table{}, fmt.Errorf("%w: duplicate column %q", ErrMalformed, col)
		}
		seen[col] = true
	}
	if !seen[record.ColUniversity] || !seen[record.ColCourse] {
		return record.Table{}, fmt.Errorf("%w: header must contain %q and %q",
			ErrMalformed, record.ColUniversity, record.ColCourse)
	}

	t := record.Table{Columns: header, Records: []record.Record{}}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return record.Table{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		line, _ := cr.FieldPos(0)
		rec, err := decodeRow(header, row)
		if err != nil {
			return record.Table{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

type metricColumn struct {
	metric record.Metric
	count  bool
}

var metricColumns = func() map[string]metricColumn {
	cols := make(map[string]metricColumn, 2*len(record.Metrics))
	for _, m := range record.Metrics {
		cols[m.AverageColumn()] = metricColumn{metric: m}
		cols[m.CountColumn()] = metricColumn{metric: m, count: true}
	}
	return cols
}()

func decodeRow(header, row []string) (record.Record, error) {
	var rec record.Record
	for i, col := range header {
		cell := row[i]
		switch col {
		case record.ColUniversity:
			rec.University = cell
			continue
		case record.ColCourse:
			rec.Course = cell
			continue
		}

		mc, ok := metricColumns[col]
		if !ok {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[col] = cell
			continue
		}

		s := rec.Stat(mc.metric)
		if mc.count {
			n, err := parseCount(cell)
			if err != nil {
				return record.Record{}, fmt.Errorf("%s: %w", col, err)
			}
			s.Count = n
		} else {
			avg, err := parseAverage(cell)
			if err != nil {
				return record.Record{}, fmt.Errorf("%s: %w", col, err)
			}
			s.Average = avg
		}
		rec.SetStat(mc.metric, s)
	}
	return rec, nil
}

// parseAverage reads a running mean; an empty cell means not yet observed.
func parseAverage(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", cell)
	}
	return f, nil
}

// parseCount reads a sample count; an empty cell means zero.
func parseCount(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func encodeCSV(t record.Table) ([]byte, error) {
	header := t.Header()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	row := make([]string, len(header))
	for i := range t.Records {
		for j, col := range header {
			row[j] = encodeCell(&t.Records[i], col)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCell(r *record.Record, col string) string {
	switch col {
	case record.ColUniversity:
		return r.University
	case record.ColCourse:
		return r.Course
	}
	if mc, ok := metricColumns[col]; ok {
		s := r.Stat(mc.metric)
		if mc.count {
			return strconv.Itoa(s.Count)
		}
		return strconv.FormatFloat(s.Average, 'g', -1, 64)
	}
	return r.Extra[col]
}
