package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/wesm/flow/internal/feature"
)

// setupConfigDir creates a temp data dir, points FLOW_DATA_DIR at
// it and clears the other environment overrides.
func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOW_DATA_DIR", dir)
	for _, k := range []string{
		"FLOW_STORAGE", "DATABASE_URL", "FLOW_VARIANT",
		"FLOW_TIMEZONE", "FLOW_HOST", "PORT",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeConfigRaw(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func loadConfigFromFlags(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterStoreFlags(fs)
	RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return Load(fs)
}

func TestLoad_Defaults(t *testing.T) {
	dir := setupConfigDir(t)
	cfg, err := loadConfigFromFlags(t)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.Storage != StorageFile {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StorageFile)
	}
	if cfg.Features != feature.All() {
		t.Errorf("Features = %+v, want all enabled", cfg.Features)
	}
	if got := cfg.DataFile(); got != filepath.Join(dir, "flow_data.json") {
		t.Errorf("DataFile = %q", got)
	}
}

func TestLoad_NilFlagSet(t *testing.T) {
	setupConfigDir(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := setupConfigDir(t)
	writeConfigRaw(t, dir, `
host = "0.0.0.0"
port = 7000
storage = "sqlite"
variant = "core"
timezone = "America/New_York"
write_timeout = "10s"

[features]
mood = true
`)

	cfg, err := loadConfigFromFlags(t)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 7000 {
		t.Errorf("addr = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q", cfg.Storage)
	}
	if cfg.WriteTimeout.Seconds() != 10 {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
	want := feature.Set{Mood: true}
	if cfg.Features != want {
		t.Errorf("Features = %+v, want %+v", cfg.Features, want)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := setupConfigDir(t)
	writeConfigRaw(t, dir, `variant = "core"`)
	t.Setenv("FLOW_VARIANT", "companion")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/flow")

	cfg, err := loadConfigFromFlags(t)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Variant != "companion" {
		t.Errorf("Variant = %q", cfg.Variant)
	}
	if cfg.Storage != StoragePostgres {
		t.Errorf("Storage = %q, want postgres", cfg.Storage)
	}
	if cfg.DatabaseURL != "postgresql://u:p@db/flow" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoad_ExplicitFlagsWin(t *testing.T) {
	dir := setupConfigDir(t)
	writeConfigRaw(t, dir, "port = 7000\n")
	t.Setenv("PORT", "7100")

	cfg, err := loadConfigFromFlags(t, "--host", "0.0.0.0", "--port", "9090", "--no-browser")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.NoBrowser {
		t.Error("NoBrowser = false")
	}
}

func TestLoad_DataDirFlagLocatesConfig(t *testing.T) {
	setupConfigDir(t)
	other := t.TempDir()
	writeConfigRaw(t, other, `storage = "sqlite"`)

	cfg, err := loadConfigFromFlags(t, "--data-dir", other)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != other {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, other)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want sqlite from %s", cfg.Storage, other)
	}
	if cfg.DBPath() != filepath.Join(other, "flow.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		args    []string
		wantErr string
	}{
		{"UnknownStorage", `storage = "mongo"`, nil, "unknown storage"},
		{"PostgresWithoutURL", "", []string{"--storage", "postgres"}, "requires a database URL"},
		{"UnknownVariant", `variant = "deluxe"`, nil, "unknown variant"},
		{"UnknownFeature", "[features]\nteleport = true\n", nil, "unknown feature"},
		{"UnknownKey", `colour = "red"`, nil, "unknown key"},
		{"BadTimezone", `timezone = "Mars/Olympus"`, nil, "time zone"},
		{"BadTimeout", `write_timeout = "soon"`, nil, "write_timeout"},
		{"BadTOML", `port = `, nil, "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupConfigDir(t)
			if tt.file != "" {
				writeConfigRaw(t, dir, tt.file)
			}
			_, err := loadConfigFromFlags(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DatabaseURLFlagSelectsPostgres(t *testing.T) {
	setupConfigDir(t)
	cfg, err := loadConfigFromFlags(t, "--database-url", "postgres://localhost/flow")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage != StoragePostgres {
		t.Errorf("Storage = %q", cfg.Storage)
	}

	cfg, err = loadConfigFromFlags(t,
		"--database-url", "postgres://localhost/flow", "--storage", "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("explicit --storage lost: %q", cfg.Storage)
	}
}

func TestNormalizeDatabaseURL(t *testing.T) {
	tests := map[string]string{
		"postgres://a@b/c":   "postgresql://a@b/c",
		"postgresql://a@b/c": "postgresql://a@b/c",
		"":                   "",
	}
	for in, want := range tests {
		if got := NormalizeDatabaseURL(in); got != want {
			t.Errorf("NormalizeDatabaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
