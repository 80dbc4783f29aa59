package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airshed/airseries/internal/artifact"
	"github.com/airshed/airseries/internal/config"
	"github.com/airshed/airseries/internal/fusion"
	"github.com/airshed/airseries/internal/synoptic"
)

// Fuser runs the fusion side: it re-reads a previously produced table and
// metadata pair, merges in the nearest supplementary station's series, and
// rewrites both artifacts in place.
type Fuser struct {
	cfg *config.Config
	syn *synoptic.Client
	log *slog.Logger
	now func() time.Time
}

func NewFuser(cfg *config.Config, client *synoptic.Client, logger *slog.Logger) *Fuser {
	return &Fuser{
		cfg: cfg,
		syn: client,
		log: logger.With("component", "fuser"),
		now: time.Now,
	}
}

// Run fuses the supplementary channel into the dataset at csvPath/jsonPath.
// No qualifying station within the radius is not an error: the fused column
// is written entirely missing and the metadata fusion block is cleared, so
// the output schema is stable either way. An unreadable input pair or a
// missing reference coordinate is fatal.
func (f *Fuser) Run(ctx context.Context, csvPath, jsonPath string) error {
	table, meta, err := artifact.LoadPair(csvPath, jsonPath)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("table %s has no rows to fuse against", csvPath)
	}

	lat, lon, ok := meta.Coordinate()
	if !ok {
		return fmt.Errorf("no latitude/longitude found in metadata %s", jsonPath)
	}
	f.log.Info("reference coordinate", "lat", lat, "lon", lon)

	station, err := f.syn.NearestStation(ctx, lat, lon, f.cfg.RadiusMiles)
	if err != nil {
		// Locator failures degrade to "fusion skipped" rather than aborting:
		// the schema below stays stable regardless.
		f.log.Warn("nearest-station lookup failed", "error", err)
		station = nil
	}

	if station == nil {
		f.log.Info("no qualifying station; writing all-missing fused column",
			"radius_miles", f.cfg.RadiusMiles)
		meta.FusionSource = nil
		return artifact.SavePair(csvPath, jsonPath, fusion.Fuse(table, nil), meta)
	}

	f.log.Info("found nearest station",
		"station", station.ID, "name", station.Name, "distance_miles", station.Distance)

	start, end := table.Span()
	ts, err := f.syn.FetchSupplementary(ctx, station, start, end)
	if err != nil {
		f.log.Warn("supplementary fetch failed; fusing empty series", "error", err)
		ts = &synoptic.Timeseries{}
	}

	fused := fusion.Fuse(table, ts.Records)
	meta.FusionSource = &fusion.Source{
		StationID:       station.ID,
		StationName:     station.Name,
		DistanceMiles:   station.Distance,
		VarsFetched:     []string{"solar_radiation"},
		FetchDate:       f.now().UTC(),
		Units:           ts.Units,
		SensorVariables: ts.SensorVariables,
	}

	if err := artifact.SavePair(csvPath, jsonPath, fused, meta); err != nil {
		return err
	}

	f.log.Info("fusion complete", "rows", len(fused.Rows), "records_fetched", len(ts.Records))
	return nil
}
