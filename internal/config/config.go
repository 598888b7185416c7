// Package config loads todosync settings.
//
// Settings come from, in increasing precedence: built-in defaults, the YAML
// file ($XDG_CONFIG_HOME/todosync/config.yaml unless a path is given) and
// TODOSYNC_* environment variables (TODOSYNC_API_TOKEN, TODOSYNC_CACHE_PATH,
// ...). View presets live in a separate TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mschirtzinger/todosync/internal/api"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TODOSYNC"

// ErrNoToken is returned when a command needs the API but no token is set.
var ErrNoToken = errors.New("api_token is not set (config file or TODOSYNC_API_TOKEN)")

// Config holds every setting.
type Config struct {
	APIToken          string        `mapstructure:"api_token"`
	SyncURL           string        `mapstructure:"sync_url"`
	RESTURL           string        `mapstructure:"rest_url"`
	CachePath         string        `mapstructure:"cache_path"`
	LogFile           string        `mapstructure:"log_file"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RollbackOnFailure bool          `mapstructure:"rollback_on_failure"`
	DashboardPort     int           `mapstructure:"dashboard_port"`
	PresetsFile       string        `mapstructure:"presets_file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncURL:         api.DefaultSyncURL,
		RESTURL:         api.DefaultRESTURL,
		CachePath:       filepath.Join(cacheDir(), "cache.db"),
		RefreshInterval: 30 * time.Second,
		RequestTimeout:  30 * time.Second,
		MaxRetries:      3,
		DashboardPort:   8080,
		PresetsFile:     filepath.Join(Dir(), "views.toml"),
	}
}

// Dir returns the configuration directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "todosync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".todosync")
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "todosync")
	}
	return Dir()
}

// Load reads the configuration file at path (the default path if empty) and
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.CachePath = expandHome(cfg.CachePath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.PresetsFile = expandHome(cfg.PresetsFile)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api_token", d.APIToken)
	v.SetDefault("sync_url", d.SyncURL)
	v.SetDefault("rest_url", d.RESTURL)
	v.SetDefault("cache_path", d.CachePath)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("refresh_interval", d.RefreshInterval)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("rollback_on_failure", d.RollbackOnFailure)
	v.SetDefault("dashboard_port", d.DashboardPort)
	v.SetDefault("presets_file", d.PresetsFile)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Write saves cfg as YAML at path, creating the directory. The file is
// private to the user since it may hold the API token.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// fileConfig is the on-disk layout; durations are written as "30s".
type fileConfig struct {
	APIToken          string `yaml:"api_token"`
	SyncURL           string `yaml:"sync_url"`
	RESTURL           string `yaml:"rest_url"`
	CachePath         string `yaml:"cache_path"`
	LogFile           string `yaml:"log_file"`
	RefreshInterval   string `yaml:"refresh_interval"`
	RequestTimeout    string `yaml:"request_timeout"`
	MaxRetries        int    `yaml:"max_retries"`
	RollbackOnFailure bool   `yaml:"rollback_on_failure"`
	DashboardPort     int    `yaml:"dashboard_port"`
	PresetsFile       string `yaml:"presets_file"`
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		APIToken:          c.APIToken,
		SyncURL:           c.SyncURL,
		RESTURL:           c.RESTURL,
		CachePath:         c.CachePath,
		LogFile:           c.LogFile,
		RefreshInterval:   c.RefreshInterval.String(),
		RequestTimeout:    c.RequestTimeout.String(),
		MaxRetries:        c.MaxRetries,
		RollbackOnFailure: c.RollbackOnFailure,
		DashboardPort:     c.DashboardPort,
		PresetsFile:       c.PresetsFile,
	}
}

// Encode returns cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	return yaml.Marshal(toFile(cfg))
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if n := len(out.APIToken); n > 4 {
		out.APIToken = strings.Repeat("*", n-4) + out.APIToken[n-4:]
	} else if n > 0 {
		out.APIToken = "****"
	}
	return &out
}

// API returns the client configuration.
func (c *Config) API() (*api.Config, error) {
	if c.APIToken == "" {
		return nil, ErrNoToken
	}
	cfg := api.DefaultConfig()
	cfg.Token = c.APIToken
	cfg.SyncURL = c.SyncURL
	cfg.RESTURL = c.RESTURL
	cfg.Timeout = c.RequestTimeout
	cfg.MaxRetries = c.MaxRetries
	return cfg, nil
}
