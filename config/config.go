// Package config loads the fintrack configuration from TOML files and
// FINTRACK_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/date"
	"github.com/etnz/fintrack/store"
	"github.com/etnz/fintrack/store/mongostore"
	"github.com/etnz/fintrack/store/surrealstore"
	"github.com/pelletier/go-toml/v2"
)

// Store drivers.
const (
	MemoryDriver  = "memory"
	JSONLDriver   = "jsonl"
	MongoDriver   = "mongo"
	SurrealDriver = "surreal"
)

var drivers = []string{MemoryDriver, JSONLDriver, MongoDriver, SurrealDriver}

// Config is the whole configuration of a tenant.
type Config struct {
	ReferenceCurrency string `toml:"reference_currency"`
	BaseCurrency      string `toml:"base_currency"`
	OpeningDate       string `toml:"opening_date"`
	CashCategory      string `toml:"cash_category"`

	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver string `toml:"driver"`
	// Path is the directory of the jsonl driver.
	Path string `toml:"path"`
	// URI is the address of the mongo and surreal drivers.
	URI       string `toml:"uri"`
	Database  string `toml:"database"`
	Namespace string `toml:"namespace"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns the configuration used when no file sets a value.
func NewDefaultConfig() *Config {
	return &Config{
		ReferenceCurrency: "EUR",
		BaseCurrency:      "EUR",
		Store: StoreConfig{
			Driver:    JSONLDriver,
			Path:      ".fintrack",
			Database:  "fintrack",
			Namespace: "fintrack",
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig merges the files at paths in order, later ones win, then
// applies the environment overrides and validates the result. Missing files
// are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	overrides := []struct {
		name  string
		field *string
	}{
		{"FINTRACK_REFERENCE_CURRENCY", &config.ReferenceCurrency},
		{"FINTRACK_BASE_CURRENCY", &config.BaseCurrency},
		{"FINTRACK_OPENING_DATE", &config.OpeningDate},
		{"FINTRACK_CASH_CATEGORY", &config.CashCategory},
		{"FINTRACK_STORE_DRIVER", &config.Store.Driver},
		{"FINTRACK_STORE_PATH", &config.Store.Path},
		{"FINTRACK_STORE_URI", &config.Store.URI},
		{"FINTRACK_STORE_DATABASE", &config.Store.Database},
		{"FINTRACK_STORE_NAMESPACE", &config.Store.Namespace},
		{"FINTRACK_STORE_USERNAME", &config.Store.Username},
		{"FINTRACK_STORE_PASSWORD", &config.Store.Password},
		{"FINTRACK_ADDR", &config.Server.Addr},
		{"FINTRACK_LOG_LEVEL", &config.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field = v
		}
	}
}

// Validate checks the engine settings and the store section.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Settings(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(drivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("unknown store driver %q, want one of %v", c.Store.Driver, drivers))
	}
	switch c.Store.Driver {
	case JSONLDriver:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store path is required by the jsonl driver"))
		}
	case MongoDriver, SurrealDriver:
		if c.Store.URI == "" {
			errs = append(errs, fmt.Errorf("store uri is required by the %s driver", c.Store.Driver))
		}
		if c.Store.Database == "" {
			errs = append(errs, fmt.Errorf("store database is required by the %s driver", c.Store.Driver))
		}
	}
	return errors.Join(errs...)
}

// Settings returns the engine settings.
func (c *Config) Settings() (fintrack.Settings, error) {
	var opening date.Date
	if c.OpeningDate != "" {
		var err error
		if opening, err = date.Parse(c.OpeningDate); err != nil {
			return fintrack.Settings{}, fmt.Errorf("invalid opening date: %w", err)
		}
	}
	s := fintrack.Settings{
		ReferenceCurrency: c.ReferenceCurrency,
		BaseCurrency:      c.BaseCurrency,
		OpeningDate:       opening,
		CashCategoryID:    c.CashCategory,
	}
	return s, s.Validate()
}

// OpenStore opens the configured document store.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Driver {
	case MemoryDriver:
		return store.NewMemory(), nil
	case JSONLDriver:
		return opened(store.OpenJSONL(c.Store.Path))
	case MongoDriver:
		return opened(mongostore.Open(ctx, c.Store.URI, c.Store.Database))
	case SurrealDriver:
		return opened(surrealstore.Open(ctx, surrealstore.Config{
			Address:   c.Store.URI,
			Username:  c.Store.Username,
			Password:  c.Store.Password,
			Namespace: c.Store.Namespace,
			Database:  c.Store.Database,
		}))
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}

// opened keeps a failed open from returning a non nil interface.
func opened[S store.Store](s S, err error) (store.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
