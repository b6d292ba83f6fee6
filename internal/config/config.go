package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/wesm/flow/internal/feature"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

const (
	configFileName = "config.toml"
	dataFileName   = "flow_data.json"
	dbFileName     = "flow.db"
)

// Config holds all application configuration.
type Config struct {
	Host         string
	Port         int
	NoBrowser    bool
	DataDir      string
	Storage      string
	DatabaseURL  string
	Variant      string
	Timezone     string
	WriteTimeout time.Duration

	// Features is the capability set: the variant's flags with
	// any [features] overrides applied.
	Features feature.Set

	featureOverrides map[string]bool
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"`
	NoBrowser    bool            `toml:"no_browser"`
	Storage      string          `toml:"storage"`
	DatabaseURL  string          `toml:"database_url"`
	Variant      string          `toml:"variant"`
	Timezone     string          `toml:"timezone"`
	WriteTimeout string          `toml:"write_timeout"`
	Features     map[string]bool `toml:"features"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:         "127.0.0.1",
		Port:         5000,
		DataDir:      filepath.Join(home, ".flow"),
		Storage:      StorageFile,
		Variant:      feature.VariantCompanion,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env
// < flags. The provided FlagSet must already be parsed by the
// caller. Only flags that were explicitly set override the lower
// layers. A nil FlagSet skips the flag layer.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	// The data dir locates config.toml, so resolve it first.
	if v := os.Getenv("FLOW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if fs != nil {
		if f := fs.Lookup("data-dir"); f != nil && f.Changed {
			cfg.DataDir = f.Value.String()
		}
	}

	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	applyFlags(&cfg, fs)
	if err := cfg.finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

// DataFile is the JSON document used by the file store.
func (c *Config) DataFile() string {
	return filepath.Join(c.DataDir, dataFileName)
}

// DBPath is the SQLite database used by the sqlite store.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file fileConfig
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.configPath(), err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf(
			"unknown key %q in %s", undecoded[0].String(), c.configPath(),
		)
	}

	if meta.IsDefined("host") {
		c.Host = file.Host
	}
	if meta.IsDefined("port") {
		c.Port = file.Port
	}
	if meta.IsDefined("no_browser") {
		c.NoBrowser = file.NoBrowser
	}
	if meta.IsDefined("storage") {
		c.Storage = file.Storage
	}
	if meta.IsDefined("database_url") {
		c.DatabaseURL = file.DatabaseURL
	}
	if meta.IsDefined("variant") {
		c.Variant = file.Variant
	}
	if meta.IsDefined("timezone") {
		c.Timezone = file.Timezone
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(file.WriteTimeout)
		if err != nil {
			return fmt.Errorf("parsing write_timeout: %w", err)
		}
		c.WriteTimeout = d
	}
	if len(file.Features) > 0 {
		c.featureOverrides = file.Features
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("FLOW_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
		if os.Getenv("FLOW_STORAGE") == "" {
			c.Storage = StoragePostgres
		}
	}
	if v := os.Getenv("FLOW_VARIANT"); v != "" {
		c.Variant = v
	}
	if v := os.Getenv("FLOW_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("FLOW_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
}

// finalize validates the merged values and derives Features.
func (c *Config) finalize() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StorageFile, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("storage %q requires a database URL", c.Storage)
		}
	default:
		return fmt.Errorf(
			"unknown storage %q (want %s, %s or %s)",
			c.Storage, StorageFile, StorageSQLite, StoragePostgres,
		)
	}
	c.DatabaseURL = NormalizeDatabaseURL(c.DatabaseURL)

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	set, err := feature.Variant(c.Variant)
	if err != nil {
		return err
	}
	for key, on := range c.featureOverrides {
		if err := set.Set(key, on); err != nil {
			return fmt.Errorf("[features]: %w", err)
		}
	}
	c.Features = set
	return nil
}

// NormalizeDatabaseURL rewrites the postgres:// scheme some hosts
// hand out into postgresql://.
func NormalizeDatabaseURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "postgres://"); ok {
		return "postgresql://" + rest
	}
	return u
}

// Location returns the configured time zone, or the local zone
// when none is set.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RegisterStoreFlags registers the flags every command that opens
// the store accepts.
func RegisterStoreFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", "", "Data directory (default ~/.flow)")
	fs.String("storage", StorageFile, "Storage backend: file, sqlite or postgres")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("variant", feature.VariantCompanion, "Feature variant: "+strings.Join(feature.Variants(), ", "))
	fs.String("timezone", "", "IANA time zone used for \"today\" (default local)")
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must parse fs before passing it to Load.
func RegisterServeFlags(fs *pflag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 5000, "Port to listen on")
	fs.Bool("no-browser", false, "Don't open browser on startup")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// pflag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "no-browser":
			cfg.NoBrowser = f.Value.String() == "true"
		case "data-dir":
			cfg.DataDir = f.Value.String()
		case "storage":
			cfg.Storage = f.Value.String()
		case "database-url":
			cfg.DatabaseURL = f.Value.String()
			if fs.Lookup("storage") == nil || !fs.Lookup("storage").Changed {
				cfg.Storage = StoragePostgres
			}
		case "variant":
			cfg.Variant = f.Value.String()
		case "timezone":
			cfg.Timezone = f.Value.String()
		}
	})
}
