package series

import (
	"sort"
	"time"
)

// Reshape pivots long-format samples into the canonical wide table plus the
// per-channel metadata summary.
//
// Rows are the union of all distinct timestamps observed across channels; a
// timestamp with data for only some channels still yields a row with the
// rest missing. Multiple samples sharing a timestamp and channel (including
// wall-clock collisions across a fall-back DST transition) are aggregated by
// arithmetic mean. The column set is always exactly channels, in that order,
// even for channels with no data at all.
func Reshape(samples []RawSample, channels []string) (*Table, map[string]ChannelDetail) {
	type acc struct {
		sum   float64
		count int
	}

	cells := make(map[time.Time]map[string]*acc)
	byChannel := make(map[string][]RawSample, len(channels))

	for _, s := range samples {
		byChannel[s.Channel] = append(byChannel[s.Channel], s)

		row, ok := cells[s.Timestamp]
		if !ok {
			row = make(map[string]*acc)
			cells[s.Timestamp] = row
		}
		if s.Value == nil {
			// Registers the timestamp but contributes nothing to the mean.
			continue
		}
		a, ok := row[s.Channel]
		if !ok {
			a = &acc{}
			row[s.Channel] = a
		}
		a.sum += *s.Value
		a.count++
	}

	timestamps := make([]time.Time, 0, len(cells))
	for ts := range cells {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	table := &Table{Columns: append([]string(nil), channels...)}
	for _, ts := range timestamps {
		row := Row{Timestamp: ts, Values: make([]*float64, len(channels))}
		for i, ch := range channels {
			if a, ok := cells[ts][ch]; ok && a.count > 0 {
				mean := a.sum / float64(a.count)
				row.Values[i] = &mean
			}
		}
		table.Rows = append(table.Rows, row)
	}

	details := make(map[string]ChannelDetail, len(channels))
	for _, ch := range channels {
		details[ch] = collapseAttributes(byChannel[ch])
	}

	return table, details
}
