// Package pipeline orchestrates the per-site backfill and the fusion run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/airshed/airseries/internal/aqs"
	"github.com/airshed/airseries/internal/artifact"
	"github.com/airshed/airseries/internal/config"
	"github.com/airshed/airseries/internal/series"
)

// Pipeline runs the acquisition side: discovery → capability filter →
// windowed retrieval → reshape → persist, per site.
type Pipeline struct {
	cfg   *config.Config
	aqs   *aqs.Client
	store *artifact.Store
	log   *slog.Logger
}

func New(cfg *config.Config, client *aqs.Client, store *artifact.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		aqs:   client,
		store: store,
		log:   logger.With("component", "pipeline"),
	}
}

// Run executes one bounded historical backfill. Site pipelines are
// independent and run under a bounded pool; failures below the site level
// are absorbed and logged, while a total discovery failure aborts the run.
// Each site's artifacts are written atomically, so aborting between sites
// never corrupts datasets already completed.
func (p *Pipeline) Run(ctx context.Context) error {
	sites, err := p.aqs.Discover(ctx, p.cfg.StateCode)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if len(sites) == 0 {
		return fmt.Errorf("no sites discovered for state %s", p.cfg.StateCode)
	}
	p.log.Info("discovered sites", "state", p.cfg.StateCode, "count", len(sites))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, site := range sites {
		g.Go(func() error {
			// Per-site failures are logged and absorbed; partial success
			// across the jurisdiction is the whole point of the backfill.
			if err := p.processSite(ctx, site); err != nil {
				p.log.Warn("site pipeline failed", "site", site.Key(), "name", site.Name, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *Pipeline) processSite(ctx context.Context, site aqs.Site) error {
	log := p.log.With("site", site.Key(), "name", site.Name)

	hasAll, found, err := p.aqs.HasRequiredChannels(ctx, site)
	if err != nil {
		return fmt.Errorf("capability check: %w", err)
	}
	if !hasAll {
		// Not an error: a filtering decision. No retrieval is attempted for
		// sites missing even one required channel.
		log.Debug("skipping site: missing required channels", "found", found)
		return nil
	}

	log.Info("site has all required channels; retrieving samples")
	samples, err := p.aqs.RetrieveSamples(ctx, site, p.cfg.StartYear)
	if err != nil {
		return fmt.Errorf("retrieve samples: %w", err)
	}
	if len(samples) == 0 {
		log.Info("no data records found")
		return nil
	}

	log.Info("reshaping samples", "count", len(samples))
	table, details := series.Reshape(samples, aqs.ChannelNames())
	cleaned := table.Cleaned()

	paths := p.store.Paths(site.Name, site.SiteCode)
	meta := &artifact.Metadata{
		SiteName:    site.Name,
		SiteID:      site.SiteCode,
		CountyCode:  site.CountyCode,
		StateCode:   site.StateCode,
		Params:      aqs.ChannelNames(),
		Details:     details,
		RawFile:     paths.Raw,
		CleanedFile: paths.Cleaned,
	}

	if err := p.store.SaveDataset(paths, table, cleaned, meta); err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}

	log.Info("dataset written",
		"raw_rows", len(table.Rows), "cleaned_rows", len(cleaned.Rows), "raw_file", paths.Raw)
	return nil
}
