package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/slpdexd/indexer/internal/tradeoffer"
)

// Config holds all application configuration loaded from environment
// variables (spec.md §6.5).
type Config struct {
	DatabaseURL string `envconfig:"SLPDEX_DATABASE_URL" default:"./data/slpdex.sqlite"`
	Port        int    `envconfig:"SLPDEX_PORT" default:"7501"`
	LogLevel    string `envconfig:"SLPDEX_LOG_LEVEL" default:"info"`
	LogDir      string `envconfig:"SLPDEX_LOG_DIR" default:"./logs"`

	// PeerAddress bootstraps the initial node connection (spec.md §6.1).
	PeerAddress string `envconfig:"SLPDEX_PEER_ADDRESS" required:"true"`

	// BitdbURL and SlpdbURL are the two upstream query endpoints
	// (spec.md §4.6/§6.2): BitdbURL serves plain BCH tx/block queries,
	// SlpdbURL serves SLP-enriched tx and token queries.
	BitdbURL string `envconfig:"SLPDEX_BITDB_URL" required:"true"`
	SlpdbURL string `envconfig:"SLPDEX_SLPDB_URL" required:"true"`

	// RemoteRequestsPerSecond caps the bitdb/slpdb query rate (spec.md §3's
	// per-endpoint rate limiting, mirroring the teacher's per-provider
	// NewRateLimiter(name, rps) pattern).
	RemoteRequestsPerSecond int `envconfig:"SLPDEX_REMOTE_RPS" default:"10"`

	// ExchLokad/ExchVersion/FeeAddress/FeeDivisor/DustLimit are the
	// process-wide EXCH trade-offer parameters (spec.md §9 "Global
	// parameters").
	ExchLokad   string `envconfig:"SLPDEX_EXCH_LOKAD" default:"EXCH"`
	ExchVersion int    `envconfig:"SLPDEX_EXCH_VERSION" default:"2"`
	FeeAddress  string `envconfig:"SLPDEX_FEE_ADDRESS" required:"true"`
	FeeDivisor  uint64 `envconfig:"SLPDEX_FEE_DIVISOR" default:"500"`
	DustLimit   uint64 `envconfig:"SLPDEX_DUST_LIMIT" default:"546"`

	// ResyncPageSize/ResyncPollInterval tune the checkpointed resync loops
	// (spec.md §4.7).
	ResyncPageSize     int `envconfig:"SLPDEX_RESYNC_PAGE_SIZE" default:"200"`
	ResyncPollInterval int `envconfig:"SLPDEX_RESYNC_POLL_INTERVAL_SECONDS" default:"30"`
}

// Load reads configuration from a .env file (if present) then from
// environment variables. Environment variables override .env values.
func Load() (*Config, error) {
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.ExchLokad != tradeoffer.Lokad {
		return fmt.Errorf("%w: exch lokad id must be %q, got %q", ErrInvalidConfig, tradeoffer.Lokad, c.ExchLokad)
	}
	if c.ExchVersion < 0 || c.ExchVersion > 255 {
		return fmt.Errorf("%w: exch version must fit a byte, got %d", ErrInvalidConfig, c.ExchVersion)
	}
	if c.FeeDivisor == 0 {
		return fmt.Errorf("%w: fee divisor must be nonzero", ErrInvalidConfig)
	}
	if c.RemoteRequestsPerSecond < 1 {
		return fmt.Errorf("%w: remote requests per second must be positive, got %d", ErrInvalidConfig, c.RemoteRequestsPerSecond)
	}
	if c.ResyncPageSize < 1 {
		return fmt.Errorf("%w: resync page size must be positive, got %d", ErrInvalidConfig, c.ResyncPageSize)
	}
	return nil
}
