package record_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/admit-stats/record"
)

func sampleTable() record.Table {
	return record.Table{Records: []record.Record{
		{University: "MIT", Course: "MBA", GMAT: record.Stat{Average: 720, Count: 3}},
		{University: "MIT", Course: "Data Science"},
		{University: "INSEAD", Course: "MBA ", Extra: map[string]string{"country": "FR"}},
		{University: "MIT", Course: "MBA", GMAT: record.Stat{Average: 100, Count: 1}},
	}}
}

func TestFindFirstMatchWins(t *testing.T) {
	tbl := sampleTable()
	i, ok := tbl.Find(record.Key{University: "MIT", Course: "MBA"})
	require.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = tbl.Find(record.Key{University: "MIT", Course: "Law"})
	assert.False(t, ok)
}

func TestLookupUpdatesInPlace(t *testing.T) {
	tbl := sampleTable()
	r, ok := tbl.Lookup(record.Key{University: "MIT", Course: "Data Science"})
	require.True(t, ok)
	r.GPA = record.Stat{Average: 3.8, Count: 1}

	assert.Equal(t, 3.8, tbl.Records[1].GPA.Average)
	assert.Equal(t, record.Stat{}, tbl.Records[0].GPA)
	assert.Equal(t, 4, tbl.Len())
}

func TestCloneIsDeep(t *testing.T) {
	tbl := sampleTable()
	tbl.Columns = []string{"university", "course"}
	cp := tbl.Clone()

	cp.Records[2].Extra["country"] = "DE"
	cp.Records[0].GMAT.Count = 99
	cp.Columns[0] = "x"

	assert.Equal(t, "FR", tbl.Records[2].Extra["country"])
	assert.Equal(t, 3, tbl.Records[0].GMAT.Count)
	assert.Equal(t, "university", tbl.Columns[0])
}

func TestDuplicates(t *testing.T) {
	assert.Equal(t, []record.Key{{University: "MIT", Course: "MBA"}}, sampleTable().Duplicates())
	assert.Empty(t, record.Table{}.Duplicates())
}

func TestQueries(t *testing.T) {
	tbl := sampleTable()

	assert.Equal(t, []string{"MBA", "Data Science", "MBA "}, tbl.Courses())
	assert.Equal(t, []string{"MIT", "INSEAD"}, tbl.Universities())
	assert.Equal(t, []string{"MBA", "Data Science"}, tbl.CoursesFor("MIT"))
	assert.Equal(t, []string{}, tbl.CoursesFor("Oxford"))

	mba := tbl.ByCourse("  mba")
	require.Len(t, mba, 3)
	assert.Equal(t, "INSEAD", mba[1].University)
	assert.Empty(t, tbl.ByCourse("law"))
}

func TestHeader(t *testing.T) {
	tbl := sampleTable()
	header := tbl.Header()
	assert.Equal(t, record.CanonicalColumns(), header[:14])
	assert.Equal(t, []string{"country"}, header[14:])

	tbl.Columns = []string{"course", "country", "university", "gpa_average"}
	header = tbl.Header()
	assert.Equal(t, []string{"course", "country", "university", "gpa_average", "gmat_average"}, header[:5])
	assert.Len(t, header, 15)
}

func TestRecordJSONIsFlat(t *testing.T) {
	r := record.Record{
		University: "MIT",
		Course:     "MBA",
		GPA:        record.Stat{Average: 3.5, Count: 2},
		Extra:      map[string]string{"country": "US"},
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "MIT", got["university"])
	assert.Equal(t, "US", got["country"])
	assert.Equal(t, 3.5, got["gpa_average"])
	assert.Equal(t, float64(2), got["gpa_count"])
	assert.Equal(t, float64(0), got["gmat_count"])
}
