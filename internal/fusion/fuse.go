// Package fusion merges a supplementary channel from a second monitoring
// network into an existing canonical table by exact timestamp alignment.
package fusion

import (
	"strings"
	"time"

	"github.com/airshed/airseries/internal/series"
)

// Column is the canonical name of the fused supplementary channel.
const Column = "SR_Synoptic"

// Record is one supplementary observation, already normalized to the same
// naive wall-clock convention as the canonical table.
type Record struct {
	Timestamp time.Time
	Value     *float64
}

// Source records the chosen supplementary station in the metadata document.
type Source struct {
	StationID       string         `json:"station_id"`
	StationName     string         `json:"station_name"`
	DistanceMiles   float64        `json:"distance_miles"`
	VarsFetched     []string       `json:"vars_fetched"`
	FetchDate       time.Time      `json:"fetch_date"`
	Units           map[string]any `json:"units"`
	SensorVariables map[string]any `json:"sensor_variables"`
}

// Fuse left-merges the supplementary records into the table on exact
// timestamp equality. Every canonical row is preserved in order; rows with
// no matching supplementary timestamp get a missing value. Any previously
// fused column is dropped first, so re-running fusion replaces values
// instead of appending a duplicate column. With no records the fused column
// is still added, entirely missing: the output schema is stable whether or
// not fusion data was available.
func Fuse(t *series.Table, records []Record) *series.Table {
	index := make(map[time.Time]*float64, len(records))
	for _, r := range records {
		// First match wins on wall-clock collisions across a fall-back
		// transition.
		if _, ok := index[r.Timestamp]; !ok {
			index[r.Timestamp] = r.Value
		}
	}

	// Positions of surviving (non-fused) columns in the input table.
	var kept []int
	for i, name := range t.Columns {
		if !strings.Contains(name, Column) {
			kept = append(kept, i)
		}
	}

	out := &series.Table{Columns: make([]string, 0, len(kept)+1)}
	for _, i := range kept {
		out.Columns = append(out.Columns, t.Columns[i])
	}
	out.Columns = append(out.Columns, Column)

	out.Rows = make([]series.Row, len(t.Rows))
	for ri, row := range t.Rows {
		values := make([]*float64, 0, len(kept)+1)
		for _, i := range kept {
			values = append(values, row.Values[i])
		}
		values = append(values, index[row.Timestamp])
		out.Rows[ri] = series.Row{Timestamp: row.Timestamp, Values: values}
	}

	return out
}
