package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds runtime configuration for a backfill or fusion run.
// Credentials and tuning knobs come from the environment (optionally .env);
// anything invalid here is fatal before the first network call.
type Config struct {
	// Primary network (AQS) credentials.
	AQSEmail string `validate:"required,email"`
	AQSKey   string `validate:"required"`

	// Secondary network (Synoptic) token; only the fuse command needs it.
	SynopticToken string

	// Jurisdiction to backfill, as the network's state code.
	StateCode string `validate:"required"`

	// First year of the requested span. The end of the span is always "now".
	StartYear int `validate:"min=1900"`

	// Directory receiving the per-site artifact files.
	DataDir string `validate:"required"`

	// Outbound HTTP behaviour.
	RequestTimeout     time.Duration `validate:"gt=0"`
	PolitenessInterval time.Duration `validate:"gte=0"`
	MaxRetries         int           `validate:"gte=0"`

	// Number of site pipelines allowed to run at once.
	Concurrency int `validate:"min=1"`

	// Search radius for the nearest supplementary station, in miles.
	RadiusMiles float64 `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AQSEmail:      os.Getenv("AQS_EMAIL"),
		AQSKey:        os.Getenv("AQS_KEY"),
		SynopticToken: os.Getenv("SYNOPTIC_TOKEN"),
		StateCode:     getenvDefault("STATE_CODE", "49"),
		StartYear:     getenvInt("START_YEAR", 1980),
		DataDir:       getenvDefault("DATA_DIR", "data"),
		MaxRetries:    getenvInt("MAX_RETRIES", 5),
		Concurrency:   getenvInt("CONCURRENCY", 1),
	}

	var err error
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.PolitenessInterval, err = getenvDuration("POLITENESS_INTERVAL", time.Second); err != nil {
		return nil, err
	}

	cfg.RadiusMiles = 25
	if v := os.Getenv("RADIUS_MILES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RADIUS_MILES: %w", err)
		}
		cfg.RadiusMiles = f
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// RequireSynopticToken enforces the fusion-only credential.
func (c *Config) RequireSynopticToken() error {
	if c.SynopticToken == "" {
		return fmt.Errorf("SYNOPTIC_TOKEN is required for fusion")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
