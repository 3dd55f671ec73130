package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BackendURL string        `mapstructure:"backend_url"`
	SiteConfig string        `mapstructure:"site_config"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retry      RetryConfig   `mapstructure:"retry"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads edge configuration from defaults, an optional YAML file and
// the environment. Variables use the QUIETEYE_EDGE_ prefix
// (QUIETEYE_EDGE_RETRY_MAX_RETRIES); the backend address is also read from
// the conventional BACKEND_URL.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("site_config", "configs/cameras.yaml")
	v.SetDefault("timeout", "10s")
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "5s")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("edge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/quieteye")
	}

	v.SetEnvPrefix("QUIETEYE_EDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("backend_url", "QUIETEYE_EDGE_BACKEND_URL", "BACKEND_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind backend url: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url %q must be an absolute http(s) URL", c.BackendURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	if c.Retry.MaxRetries > 0 && (c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval) {
		return errors.New("retry intervals must be positive with max_interval >= initial_interval")
	}
	return nil
}
