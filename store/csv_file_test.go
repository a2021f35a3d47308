package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/admit-stats/record"
	"github.com/stevemurr/admit-stats/store"
)

func writeCSV(t *testing.T, content string) *store.CSVFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	b, err := store.NewCSVFile(path)
	require.NoError(t, err)
	return b
}

func TestCSVFileToleratesMissingMetrics(t *testing.T) {
	b := writeCSV(t, "\ufeffcountry,university,course,gmat_average,gmat_count\r\n"+
		"US,MIT,MBA,715.0,4\r\n"+
		"FR,INSEAD,MBA,,\r\n")

	got, err := b.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "university", "course", "gmat_average", "gmat_count"}, got.Columns)
	require.Len(t, got.Records, 2)

	mit := got.Records[0]
	assert.Equal(t, record.Key{University: "MIT", Course: "MBA"}, mit.Key())
	assert.Equal(t, record.Stat{Average: 715, Count: 4}, mit.GMAT)
	assert.Equal(t, record.Stat{}, mit.GPA)
	assert.Equal(t, map[string]string{"country": "US"}, mit.Extra)

	assert.Equal(t, record.Stat{}, got.Records[1].GMAT)
}

func TestCSVFileKeepsHeaderOrderOnWrite(t *testing.T) {
	b := writeCSV(t, "course,university,country\nMBA,MIT,US\n")
	tbl, err := b.ReadAll()
	require.NoError(t, err)

	tbl.Records[0].Observe(record.Observation{University: "MIT", Course: "MBA", Experience: 3, GPA: 3.7})
	require.NoError(t, b.WriteAll(tbl))

	data, err := os.ReadFile(b.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"course,university,country,gmat_average,gmat_count,gre_average,gre_count,"+
			"experience_average,experience_count,gpa_average,gpa_count,"+
			"toefl_average,toefl_count,ielts_average,ielts_count\n"+
			"MBA,MIT,US,0,0,0,0,3,1,3.7,1,0,0,0,0\n",
		string(data))
}

func TestCSVFileRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing course column": "university,gmat_average\nMIT,700\n",
		"short row":             "university,course,gmat_average\nMIT,MBA\n",
		"non-numeric average":   "university,course,gpa_average\nMIT,MBA,high\n",
		"non-finite average":    "university,course,gpa_average\nMIT,MBA,NaN\n",
		"fractional count":      "university,course,gpa_count\nMIT,MBA,2.5\n",
		"negative count":        "university,course,gpa_count\nMIT,MBA,-1\n",
		"duplicate column":      "university,course,course\nMIT,MBA,MBA\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := writeCSV(t, content).ReadAll()
			assert.ErrorIs(t, err, store.ErrMalformed)
		})
	}
}

func TestCSVFileEmptyFile(t *testing.T) {
	got, err := writeCSV(t, "").ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got.Records)
}

func TestCSVFileWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := store.NewCSVFile(filepath.Join(dir, "nested", "programs.csv"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.WriteAll(sampleTable()))
	}

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "programs.csv", entries[0].Name())
}

func TestCSVFileWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	b, err := store.NewCSVFile(filepath.Join(blocker, "programs.csv"))
	require.NoError(t, err)
	assert.Error(t, b.WriteAll(sampleTable()))
}
