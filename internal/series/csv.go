package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// TimestampLayout is the naive wall-clock rendering used in the CSV
// artifacts. No zone, no offset.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts accepted when reading a previously written table back.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04",
	"2006-01-02",
}

// WriteCSV renders the table with a leading "datetime" column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"datetime"}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range t.Rows {
		record[0] = row.Timestamp.Format(TimestampLayout)
		for i, v := range row.Values {
			if v == nil {
				record[i+1] = ""
			} else {
				record[i+1] = strconv.FormatFloat(*v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table previously written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) == 0 || header[0] != "datetime" {
		return nil, fmt.Errorf("unexpected csv header: missing datetime column")
	}

	table := &Table{Columns: append([]string(nil), header[1:]...)}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, err
		}

		row := Row{Timestamp: ts, Values: make([]*float64, len(table.Columns))}
		for i, cell := range record[1:] {
			if cell == "" {
				continue
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("parse value %q: %w", cell, err)
			}
			row.Values[i] = &f
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
