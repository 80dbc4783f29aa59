package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airshed/airseries/internal/series"
)

func ts(h int) time.Time {
	return time.Date(2010, time.August, 3, h, 0, 0, 0, time.UTC)
}

func fv(f float64) *float64 { return &f }

func canonicalTable() *series.Table {
	return &series.Table{
		Columns: []string{"O3", "NO"},
		Rows: []series.Row{
			{Timestamp: ts(0), Values: []*float64{fv(0.04), fv(0.001)}},
			{Timestamp: ts(1), Values: []*float64{fv(0.05), nil}},
			{Timestamp: ts(2), Values: []*float64{nil, fv(0.002)}},
		},
	}
}

func TestFuse_LeftMergePreservesRows(t *testing.T) {
	table := canonicalTable()
	records := []Record{
		{Timestamp: ts(0), Value: fv(120)},
		{Timestamp: ts(2), Value: fv(310)},
		{Timestamp: ts(9), Value: fv(999)}, // no canonical row: must not add one
	}

	fused := Fuse(table, records)

	assert.Equal(t, []string{"O3", "NO", Column}, fused.Columns)
	require.Len(t, fused.Rows, len(table.Rows))

	for i := range table.Rows {
		assert.Equal(t, table.Rows[i].Timestamp, fused.Rows[i].Timestamp, "row order changed")
	}

	col := fused.ColumnIndex(Column)
	require.NotNil(t, fused.Rows[0].Values[col])
	assert.InDelta(t, 120, *fused.Rows[0].Values[col], 1e-9)
	assert.Nil(t, fused.Rows[1].Values[col], "unmatched timestamp gets a missing value")
	require.NotNil(t, fused.Rows[2].Values[col])
	assert.InDelta(t, 310, *fused.Rows[2].Values[col], 1e-9)
}

func TestFuse_Idempotent(t *testing.T) {
	records := []Record{{Timestamp: ts(1), Value: fv(200)}}

	once := Fuse(canonicalTable(), records)
	twice := Fuse(once, records)

	assert.Equal(t, once, twice)
}

func TestFuse_RerunReplacesPreviousColumn(t *testing.T) {
	table := canonicalTable()

	first := Fuse(table, []Record{{Timestamp: ts(0), Value: fv(100)}})
	second := Fuse(first, []Record{{Timestamp: ts(1), Value: fv(555)}})

	// Still exactly one fused column.
	count := 0
	for _, c := range second.Columns {
		if c == Column {
			count++
		}
	}
	assert.Equal(t, 1, count)

	col := second.ColumnIndex(Column)
	assert.Nil(t, second.Rows[0].Values[col], "stale value from the first fuse must be gone")
	require.NotNil(t, second.Rows[1].Values[col])
	assert.InDelta(t, 555, *second.Rows[1].Values[col], 1e-9)
}

func TestFuse_NoRecordsYieldsAllMissingColumn(t *testing.T) {
	fused := Fuse(canonicalTable(), nil)

	col := fused.ColumnIndex(Column)
	require.GreaterOrEqual(t, col, 0, "schema must be stable even without fusion data")
	for _, row := range fused.Rows {
		assert.Nil(t, row.Values[col])
	}
}

func TestFuse_WallClockCollisionFirstMatchWins(t *testing.T) {
	records := []Record{
		{Timestamp: ts(1), Value: fv(10)},
		{Timestamp: ts(1), Value: fv(20)},
	}

	fused := Fuse(canonicalTable(), records)

	col := fused.ColumnIndex(Column)
	require.NotNil(t, fused.Rows[1].Values[col])
	assert.InDelta(t, 10, *fused.Rows[1].Values[col], 1e-9)
}
