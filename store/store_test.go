package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/admit-stats/record"
	"github.com/stevemurr/admit-stats/store"
)

func sampleTable() record.Table {
	return record.Table{Records: []record.Record{
		{
			University: "MIT",
			Course:     "MBA",
			GMAT:       record.Stat{Average: 716.6666666666666, Count: 3},
			Experience: record.Stat{Average: 4.25, Count: 4},
			GPA:        record.Stat{Average: 0.1 + 0.2, Count: 2},
		},
		{
			University: "INSEAD",
			Course:     "MBA",
			TOEFL:      record.Stat{Average: 108, Count: 1},
			IELTS:      record.Stat{Average: 7.5, Count: 1},
		},
		{University: "ETH Zürich", Course: "Computer Science, MSc"},
	}}
}

// runBackendTests runs a common test suite against any Backend implementation.
func runBackendTests(t *testing.T, b store.Backend) {
	t.Helper()

	t.Run("WriteAll and ReadAll", func(t *testing.T) {
		want := sampleTable()
		require.NoError(t, b.WriteAll(want))
		got, err := b.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, want.Records, got.Records)
	})

	t.Run("WriteAll replaces", func(t *testing.T) {
		want := sampleTable()
		want.Records = want.Records[1:]
		require.NoError(t, b.WriteAll(want))
		got, err := b.ReadAll()
		require.NoError(t, err)
		require.Len(t, got.Records, 2)
		assert.Equal(t, "INSEAD", got.Records[0].University)
	})

	t.Run("Extra columns survive", func(t *testing.T) {
		want := sampleTable()
		for i := range want.Records {
			want.Records[i].Extra = map[string]string{"country": "X" + want.Records[i].University}
		}
		require.NoError(t, b.WriteAll(want))
		got, err := b.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, want.Records, got.Records)
	})

	t.Run("Empty table", func(t *testing.T) {
		require.NoError(t, b.WriteAll(record.Table{}))
		got, err := b.ReadAll()
		require.NoError(t, err)
		assert.Empty(t, got.Records)
	})
}

func TestMemory(t *testing.T) {
	runBackendTests(t, store.NewMemory())
}

func TestCSVFile(t *testing.T) {
	b, err := store.NewCSVFile(filepath.Join(t.TempDir(), "programs.csv"))
	require.NoError(t, err)
	runBackendTests(t, b)
}

func TestSqlite(t *testing.T) {
	b, err := store.NewSqlite(filepath.Join(t.TempDir(), "programs.db"))
	require.NoError(t, err)
	defer b.Close()
	runBackendTests(t, b)
}

func TestSqliteKeepsColumnOrder(t *testing.T) {
	b, err := store.NewSqlite(filepath.Join(t.TempDir(), "programs.db"))
	require.NoError(t, err)
	defer b.Close()

	want := sampleTable()
	want.Columns = []string{"course", "university", "gpa_average", "gpa_count"}
	require.NoError(t, b.WriteAll(want))
	got, err := b.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, want.Columns, got.Columns)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
	}{
		{"csv"},
		{"sqlite"},
		{"memory"},
		{""},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			b, err := store.Open(tc.backend, filepath.Join(dir, "data-"+tc.backend))
			require.NoError(t, err)
			assert.NoError(t, b.Close())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := store.Open("redis", dir)
		assert.Error(t, err)
	})

	t.Run("csv without path", func(t *testing.T) {
		_, err := store.Open("csv", "  ")
		assert.Error(t, err)
	})
}
