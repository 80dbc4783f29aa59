// Package series turns long-format per-channel samples into the canonical
// wide, timestamp-indexed table and its per-channel metadata summary.
package series

import (
	"time"
)

// RawSample is one long-format observation as produced by the windowed
// retriever: a naive local wall-clock timestamp, the canonical channel name,
// an optional numeric value, and whatever descriptive attributes the source
// attached to the record.
type RawSample struct {
	Timestamp  time.Time
	Channel    string
	Value      *float64
	Attributes map[string]any
}

// Row is a single timestamp's worth of the canonical table. Values align
// with Table.Columns; nil means missing.
type Row struct {
	Timestamp time.Time
	Values    []*float64
}

// Table is the canonical wide series: one row per distinct timestamp,
// ordered by timestamp, one column per canonical channel name in fixed
// order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Span returns the earliest and latest timestamps in the table.
func (t *Table) Span() (start, end time.Time) {
	if len(t.Rows) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Rows[0].Timestamp, t.Rows[len(t.Rows)-1].Timestamp
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cleaned returns the analysis-ready view: same columns, rows with any
// missing value dropped. The receiver is not modified; the full table is
// retained for audit.
func (t *Table) Cleaned() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		complete := true
		for _, v := range row.Values {
			if v == nil {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
