package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backend names accepted in StoreConfig.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is one of "sqlite", "postgres" or "rest".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`

	// RESTURL is the project URL of a PostgREST-compatible service
	// (e.g., https://xyz.supabase.co).
	RESTURL string `mapstructure:"rest_url" yaml:"rest_url"`

	// Migrate controls whether SQL backends create missing tables on open.
	Migrate bool `mapstructure:"migrate" yaml:"migrate"`

	// TimeoutSec bounds each store call issued from the UI.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// BoardConfig holds board presentation settings.
type BoardConfig struct {
	// ColumnTitles overrides the default label of a column by id.
	ColumnTitles map[string]string `mapstructure:"column_titles" yaml:"column_titles"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`

	// File receives log output. Empty means stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Board BoardConfig `mapstructure:"board" yaml:"board"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// ColumnTitle returns the configured label for id, falling back to the
// built-in default.
func (c *AppConfig) ColumnTitle(id ColumnID) string {
	if t, ok := c.Board.ColumnTitles[string(id)]; ok && strings.TrimSpace(t) != "" {
		return t
	}
	return DefaultColumnTitles[id]
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/lectureboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns the default sqlite database location.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "board.db")
}

// DefaultLogPath returns where the TUI writes its log.
func DefaultLogPath() string {
	return filepath.Join(configDir(), "lectureboard.log")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lectureboard")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: DefaultDBPath(),
			Migrate:    true,
			TimeoutSec: 15,
		},
		Board: BoardConfig{
			ColumnTitles: map[string]string{},
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogPath(),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.rest_url", "")
	v.SetDefault("store.migrate", d.Store.Migrate)
	v.SetDefault("store.timeout_sec", d.Store.TimeoutSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed LECTUREBOARD_ (e.g.
// LECTUREBOARD_STORE_BACKEND) override file values, and any flags in fs that
// were set on the command line override both. If the file does not exist,
// defaults are used.
func LoadConfig(path string, fs *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("lectureboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if fs != nil {
		bindFlag(v, fs, "store.backend", "backend")
		bindFlag(v, fs, "store.sqlite_path", "db")
		bindFlag(v, fs, "log.level", "log-level")
	}

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// bindFlag binds a flag to key only when the flag exists in fs.
func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, flag string) {
	if f := fs.Lookup(flag); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// Validate checks backend-specific required settings.
func (c *AppConfig) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	case BackendREST:
		if c.Store.RESTURL == "" {
			return fmt.Errorf("store.rest_url is required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	for id := range c.Board.ColumnTitles {
		if !ColumnID(id).Valid() {
			return fmt.Errorf("board.column_titles: unknown column %q", id)
		}
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("board", cfg.Board)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
