package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PRX environment names and their API bases.
const (
	EnvStaging    = "staging"
	EnvProduction = "production"

	stagingIDBase     = "https://id.staging.prx.tech"
	stagingCMSBase    = "https://cms.staging.prx.tech/api/v1"
	productionIDBase  = "https://id.prx.org"
	productionCMSBase = "https://cms.prx.org/api/v1"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ClientID       string `mapstructure:"prx_client_id"`
	ClientSecret   string `mapstructure:"prx_client_secret"`
	PRXEnvironment string `mapstructure:"prx_environment"`
	AccountID      int64  `mapstructure:"prx_account_id"`

	SyncIntervalHours int64         `mapstructure:"sync_interval_hours"`
	StoriesPerRun     int           `mapstructure:"stories_per_run"`
	SyncInterval      time.Duration `mapstructure:"-"`

	StorageType   string `mapstructure:"storage_type"`
	BBoltPath     string `mapstructure:"bbolt_path"`
	MediaDir      string `mapstructure:"media_dir"`
	NotifiersFile string `mapstructure:"notifiers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "prx-sync")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	// Viper only resolves env values for keys it knows about, so every key
	// needs a default even when that default is empty.
	v.SetDefault("prx_client_id", "")
	v.SetDefault("prx_client_secret", "")
	v.SetDefault("prx_environment", EnvProduction)
	v.SetDefault("prx_account_id", 197472) // Ampers
	v.SetDefault("sync_interval_hours", 3)
	v.SetDefault("stories_per_run", 50)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/content.db")
	v.SetDefault("media_dir", "./data/media")
	v.SetDefault("notifiers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.PRXEnvironment != EnvStaging && cfg.PRXEnvironment != EnvProduction {
		return nil, fmt.Errorf("invalid prx_environment %q (must be %q or %q)", cfg.PRXEnvironment, EnvStaging, EnvProduction)
	}
	if cfg.AccountID <= 0 {
		return nil, fmt.Errorf("invalid prx_account_id (must be positive)")
	}
	if cfg.SyncIntervalHours <= 0 {
		return nil, fmt.Errorf("invalid sync_interval_hours (must be positive)")
	}
	if cfg.StoriesPerRun <= 0 {
		return nil, fmt.Errorf("invalid stories_per_run (must be positive)")
	}
	cfg.SyncInterval = time.Duration(cfg.SyncIntervalHours) * time.Hour

	return &cfg, nil
}

// Redacted returns a copy safe to log: credential fields are masked when
// set and left empty when unset so misconfiguration stays visible.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.ClientID != "" {
		cp.ClientID = "[redacted]"
	}
	if cp.ClientSecret != "" {
		cp.ClientSecret = "[redacted]"
	}
	return cp
}

// IDBaseURL returns the OAuth2 token server base for the configured PRX environment.
func (c *Config) IDBaseURL() string {
	if c.PRXEnvironment == EnvStaging {
		return stagingIDBase
	}
	return productionIDBase
}

// CMSBaseURL returns the CMS API base for the configured PRX environment.
func (c *Config) CMSBaseURL() string {
	if c.PRXEnvironment == EnvStaging {
		return stagingCMSBase
	}
	return productionCMSBase
}
