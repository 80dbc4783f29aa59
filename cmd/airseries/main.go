package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/airshed/airseries/internal/aqs"
	"github.com/airshed/airseries/internal/artifact"
	"github.com/airshed/airseries/internal/config"
	"github.com/airshed/airseries/internal/httpx"
	"github.com/airshed/airseries/internal/logging"
	"github.com/airshed/airseries/internal/pipeline"
	"github.com/airshed/airseries/internal/synoptic"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "airseries",
		Short:         "Historical air-quality backfill and supplementary-channel fusion",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newScrapeCmd(&verbose), newFuseCmd(&verbose))
	return root
}

func newScrapeCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Backfill every eligible monitoring site in the configured jurisdiction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(*verbose)

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := artifact.NewStore(cfg.DataDir, logger)
			if err != nil {
				return err
			}

			client := aqs.NewClient(
				httpx.New("aqs", httpClientConfig(cfg), logger),
				"", cfg.AQSEmail, cfg.AQSKey, logger,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return pipeline.New(cfg, client, store, logger).Run(ctx)
		},
	}
}

func newFuseCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "fuse <raw.csv> <metadata.json>",
		Short: "Merge the nearest supplementary station's series into an existing dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(*verbose)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireSynopticToken(); err != nil {
				return err
			}

			client := synoptic.NewClient(
				httpx.New("synoptic", httpClientConfig(cfg), logger),
				"", cfg.SynopticToken, logger,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return pipeline.NewFuser(cfg, client, logger).Run(ctx, args[0], args[1])
		},
	}
}

func httpClientConfig(cfg *config.Config) httpx.Config {
	return httpx.Config{
		Timeout:    cfg.RequestTimeout,
		Politeness: cfg.PolitenessInterval,
		Backoff: httpx.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: 2 * time.Second,
			MaxInterval:     30 * time.Second,
		},
	}
}
