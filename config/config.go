// Package config reads the node's settings from the environment, after
// loading a local .env if one exists.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"okinoko-button_game/sdk"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Store       string `env:"STORE" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"button.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Owner administers the game. It also signs the deploy call.
	Owner            sdk.Address `env:"OWNER" envDefault:"hive:button-owner"`
	TimerDuration    uint64      `env:"TIMER_DURATION" envDefault:"300"`
	EntryFee         string      `env:"ENTRY_FEE" envDefault:"0.010"`
	InitialPrizePool string      `env:"INITIAL_PRIZE_POOL" envDefault:"5.000"`
	Asset            sdk.Asset   `env:"ASSET" envDefault:"hive"`
	JackpotBps       uint16      `env:"JACKPOT_BPS" envDefault:"0"`
	JackpotEvery     uint64      `env:"JACKPOT_EVERY" envDefault:"1"`

	// Faucet exposes the deposit endpoint and funds the seed pool on first
	// deploy. Never enable it outside development.
	Faucet       bool   `env:"FAUCET" envDefault:"false"`
	FaucetToken  string `env:"FAUCET_TOKEN"`
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads .env files (missing ones are ignored) and then BUTTON_*
// variables. Real environment variables win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return Parse()
}

// Parse reads BUTTON_* variables without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BUTTON_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("BUTTON_SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("BUTTON_DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.TimerDuration == 0 {
		errs = append(errs, errors.New("timer duration must be positive"))
	}
	if fee, err := sdk.ParseAmount(c.EntryFee); err != nil || fee == 0 {
		errs = append(errs, fmt.Errorf("invalid entry fee %q", c.EntryFee))
	}
	if _, err := sdk.ParseAmount(c.InitialPrizePool); err != nil {
		errs = append(errs, fmt.Errorf("invalid initial prize pool %q", c.InitialPrizePool))
	}
	if c.Asset != sdk.AssetHive && c.Asset != sdk.AssetHbd {
		errs = append(errs, fmt.Errorf("unknown asset %q", c.Asset))
	}
	if c.JackpotBps > 10_000 {
		errs = append(errs, fmt.Errorf("jackpot bps %d above 10000", c.JackpotBps))
	}
	if c.JackpotEvery == 0 {
		errs = append(errs, errors.New("jackpot cadence must be positive"))
	}
	return errors.Join(errs...)
}

// InitPayload renders the deploy arguments for the init entry point.
func (c *Config) InitPayload() string {
	return strings.Join([]string{
		c.Owner.String(),
		strconv.FormatUint(c.TimerDuration, 10),
		c.EntryFee,
		c.InitialPrizePool,
		c.Asset.String(),
		strconv.FormatUint(uint64(c.JackpotBps), 10),
		strconv.FormatUint(c.JackpotEvery, 10),
	}, "|")
}
