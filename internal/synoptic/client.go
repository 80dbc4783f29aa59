// Package synoptic talks to the secondary monitoring network used for
// supplementary-channel fusion: nearest-station spatial search and
// timeseries retrieval.
package synoptic

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/airshed/airseries/internal/fusion"
	"github.com/airshed/airseries/internal/httpx"
)

// DefaultBaseURL is the production endpoint of the secondary network.
const DefaultBaseURL = "https://api.synopticdata.com/v2"

// supplementaryVar is the one channel fetched from this network.
const supplementaryVar = "solar_radiation"

// Client issues token-authenticated calls against the secondary network.
type Client struct {
	httpc   *httpx.Client
	baseURL string
	token   string
	log     *slog.Logger
}

// NewClient creates a Client. baseURL may be empty to use the production
// endpoint.
func NewClient(httpc *httpx.Client, baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpc:   httpc,
		baseURL: baseURL,
		token:   token,
		log:     logger.With("component", "synoptic"),
	}
}

// Station is a candidate supplementary-network entity.
type Station struct {
	ID       string  `json:"STID"`
	Name     string  `json:"NAME"`
	Distance float64 `json:"DISTANCE"`
	Timezone string  `json:"TIMEZONE"`
}

// NearestStation finds the closest station within radiusMiles of the
// reference coordinate that reports the supplementary channel. The network's
// own distance ranking is trusted: exactly one result is requested and no
// re-ranking happens locally. Returns nil when no station qualifies, which
// callers must treat as "fusion skipped", not an error.
func (c *Client) NearestStation(ctx context.Context, lat, lon, radiusMiles float64) (*Station, error) {
	params := url.Values{}
	params.Set("token", c.token)
	params.Set("radius", fmt.Sprintf("%g,%g,%g", lat, lon, radiusMiles))
	params.Set("vars", supplementaryVar)
	params.Set("limit", "1")

	var payload struct {
		Station []Station `json:"STATION"`
	}
	if err := c.httpc.GetJSON(ctx, c.baseURL+"/stations/metadata", params, &payload); err != nil {
		return nil, err
	}

	if len(payload.Station) == 0 {
		c.log.Info("no station with supplementary channel within radius",
			"lat", lat, "lon", lon, "radius_miles", radiusMiles)
		return nil, nil
	}
	return &payload.Station[0], nil
}

// Timeseries is the station's supplementary series plus the unit and sensor
// descriptions the network attaches to it.
type Timeseries struct {
	Records         []fusion.Record
	Units           map[string]any
	SensorVariables map[string]any
}

// timestampLayouts accepted for the network's local-time observations.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// FetchSupplementary retrieves the station's supplementary series over
// [start, end]. Source timestamps carry the offset in effect at each instant
// (including daylight-saving discontinuities); each is parsed as an absolute
// instant, re-expressed in the station's civil time, then stripped of its
// offset so the records align exactly with the canonical table's naive
// wall-clock convention.
func (c *Client) FetchSupplementary(ctx context.Context, station *Station, start, end time.Time) (*Timeseries, error) {
	params := url.Values{}
	params.Set("token", c.token)
	params.Set("stid", station.ID)
	params.Set("start", start.Format("200601021504"))
	params.Set("end", end.Format("200601021504"))
	params.Set("vars", supplementaryVar)
	params.Set("obtimezone", "local")

	var payload struct {
		Station []struct {
			Observations struct {
				DateTime []string   `json:"date_time"`
				Values   []*float64 `json:"solar_radiation_set_1"`
			} `json:"OBSERVATIONS"`
			SensorVariables map[string]any `json:"SENSOR_VARIABLES"`
		} `json:"STATION"`
		Units map[string]any `json:"UNITS"`
	}
	if err := c.httpc.GetJSON(ctx, c.baseURL+"/stations/timeseries", params, &payload); err != nil {
		return nil, err
	}

	ts := &Timeseries{Units: payload.Units}
	if len(payload.Station) == 0 {
		c.log.Warn("no timeseries data for station in range", "station", station.ID)
		return ts, nil
	}

	obs := payload.Station[0].Observations
	ts.SensorVariables = payload.Station[0].SensorVariables

	if len(obs.DateTime) == 0 || len(obs.Values) == 0 {
		c.log.Warn("expected observation fields missing in response", "station", station.ID)
		return ts, nil
	}

	zone, err := time.LoadLocation(station.Timezone)
	if err != nil {
		c.log.Warn("could not load station timezone; keeping source wall time",
			"station", station.ID, "timezone", station.Timezone, "error", err)
		zone = nil
	}

	n := min(len(obs.DateTime), len(obs.Values))
	ts.Records = make([]fusion.Record, 0, n)
	for i := 0; i < n; i++ {
		instant, err := parseObservationTime(obs.DateTime[i])
		if err != nil {
			c.log.Debug("dropping observation with malformed timestamp", "value", obs.DateTime[i])
			continue
		}
		if zone != nil {
			instant = instant.In(zone)
		}
		ts.Records = append(ts.Records, fusion.Record{
			Timestamp: stripOffset(instant),
			Value:     obs.Values[i],
		})
	}

	return ts, nil
}

func parseObservationTime(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse observation time %q", s)
}

// stripOffset re-keys an instant by its civil clock reading, matching the
// canonical table's naive timestamp convention.
func stripOffset(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
