// Package config loads application configuration. Hierarchy, highest
// priority first: CLI flags, environment (LUMICORE_*), config file
// (~/.lumicore/config.yaml), defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// APIURL is the base URL for all three collaborator endpoints.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// Candidate is the candidate name sent with submissions.
	Candidate string `mapstructure:"candidate" yaml:"candidate"`

	// DefaultBatch is the batch id fetched at startup.
	DefaultBatch string `mapstructure:"default_batch" yaml:"default_batch"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`

	// DBPath is the submission audit log location. Empty disables it.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	LogDir   string `mapstructure:"log_dir" yaml:"log_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// RetryConfig tunes the fetch retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Base        time.Duration `mapstructure:"base" yaml:"base"`
	Cap         time.Duration `mapstructure:"cap" yaml:"cap"`
	HintMargin  time.Duration `mapstructure:"hint_margin" yaml:"hint_margin"`
}

// DataDir returns ~/.lumicore, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	dir := filepath.Join(home, ".lumicore")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// Load resolves configuration via the viper instance v (which may
// already carry bound CLI flags). cfgFile overrides the default config
// file location when non-empty.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, err
	}

	v.SetDefault("api_url", "")
	v.SetDefault("candidate", "")
	v.SetDefault("default_batch", "1")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base", time.Second)
	v.SetDefault("retry.cap", 4*time.Second)
	v.SetDefault("retry.hint_margin", 300*time.Millisecond)
	v.SetDefault("db_path", filepath.Join(dataDir, "lumicore.db"))
	v.SetDefault("log_dir", filepath.Join(dataDir, "logs"))
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("LUMICORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dataDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missingDefault := cfgFile == "" && (errors.As(err, &notFound) || os.IsNotExist(err))
		if !missingDefault {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url is required (flag --api-url, env LUMICORE_API_URL, or config file)")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New("retry.max_attempts must be non-negative")
	}
	return nil
}
