package aqs

import (
	"context"
	"time"

	"github.com/airshed/airseries/internal/series"
)

// Window is one bounded sub-interval of the requested span: a page in time
// rather than in result count. Start and End are inclusive civil dates.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) bdate() string { return w.Start.Format(dateLayout) }
func (w Window) edate() string { return w.End.Format(dateLayout) }

// Windows splits [Jan 1 startYear, now] into contiguous calendar-year
// windows in chronological order. The final window is clipped to today when
// it overlaps the current year, so the partition covers the span with no
// gaps and no overlaps.
func Windows(startYear int, now time.Time) []Window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var windows []Window
	for year := startYear; year <= now.Year(); year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if start.After(today) {
			break
		}
		end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		if end.After(today) {
			end = today
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}

// attribute fields stripped from raw records: timestamp/value fields consumed
// by the reshaper and identity fields already captured on the Site.
var excludedAttrs = map[string]bool{
	"date_local":         true,
	"time_local":         true,
	"date_gmt":           true,
	"time_gmt":           true,
	"sample_measurement": true,
	"parameter_code":     true,
	"state_code":         true,
	"county_code":        true,
	"site_number":        true,
}

// RetrieveSamples fetches raw samples for the site across the full span from
// startYear to now, one retrieval call per calendar-year window. A failed
// window yields zero samples for that window and is logged, but does not
// abort the remaining windows: a transient outage costs one window's worth
// of data, not the whole multi-year backfill.
func (c *Client) RetrieveSamples(ctx context.Context, site Site, startYear int) ([]series.RawSample, error) {
	var samples []series.RawSample

	for _, w := range Windows(startYear, c.now()) {
		if ctx.Err() != nil {
			return samples, ctx.Err()
		}

		records, err := c.sampleData(ctx, site, w.bdate(), w.edate())
		if err != nil {
			c.log.Warn("window retrieval failed",
				"site", site.Key(), "bdate", w.bdate(), "edate", w.edate(), "error", err)
			continue
		}

		for _, rec := range records {
			sample, ok := c.parseSample(rec)
			if !ok {
				continue
			}
			samples = append(samples, sample)
		}
	}

	return samples, nil
}

// parseSample converts one raw record into a RawSample. Records missing the
// date, time, or channel fields are dropped (malformed response policy: zero
// data, keep going).
func (c *Client) parseSample(rec map[string]any) (series.RawSample, bool) {
	date, _ := rec["date_local"].(string)
	clock, _ := rec["time_local"].(string)
	code, _ := rec["parameter_code"].(string)

	name, required := channelName(code)
	if date == "" || clock == "" || !required {
		return series.RawSample{}, false
	}

	ts, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		c.log.Debug("dropping record with malformed timestamp", "date", date, "time", clock)
		return series.RawSample{}, false
	}

	var value *float64
	if f, ok := rec["sample_measurement"].(float64); ok {
		value = &f
	}

	attrs := make(map[string]any, len(rec))
	for k, v := range rec {
		if excludedAttrs[k] {
			continue
		}
		attrs[k] = v
	}

	return series.RawSample{
		Timestamp:  ts,
		Channel:    name,
		Value:      value,
		Attributes: attrs,
	}, true
}
