package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Unifex    AppConfig                 `yaml:"unifex"`
	HTTP      HTTPConfig                `yaml:"http"`
	Retry     RetryConfig               `yaml:"retry"`
	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`
	Logging   LoggingConfig             `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ExchangeConfig configures one adapter instance. Credentials may be left
// out of the YAML entirely and supplied through <EXCHANGE>_API_KEY and
// <EXCHANGE>_API_SECRET environment variables instead.
type ExchangeConfig struct {
	APIKey            string        `yaml:"api_key"`
	Secret            string        `yaml:"api_secret"`
	Sandbox           bool          `yaml:"sandbox"`
	BaseURL           string        `yaml:"base_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	Timeout           time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

const defaultConfigPath = "config/config.yml"

// environment specific config files picked up when APP_ENV is set and the
// caller did not override the path explicitly
var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override credentials from environment variables if available
	for name, ex := range config.Exchanges {
		prefix := strings.ToUpper(name)
		if v := os.Getenv(prefix + "_API_KEY"); v != "" {
			ex.APIKey = strings.TrimSpace(v)
		}
		if v := os.Getenv(prefix + "_API_SECRET"); v != "" {
			ex.Secret = strings.TrimSpace(v)
		}
		config.Exchanges[name] = ex
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Unifex.Name == "" {
		return fmt.Errorf("unifex.name is required")
	}

	if cfg.Unifex.Version == "" {
		return fmt.Errorf("unifex.version is required")
	}

	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than 0")
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be greater than 0")
	}

	for name, ex := range cfg.Exchanges {
		if ex.RequestsPerSecond < 0 {
			return fmt.Errorf("exchanges.%s.requests_per_second must not be negative", name)
		}
		if ex.BurstSize < 0 {
			return fmt.Errorf("exchanges.%s.burst_size must not be negative", name)
		}
		if ex.BaseURL != "" && !strings.HasPrefix(ex.BaseURL, "http") {
			return fmt.Errorf("exchanges.%s.base_url '%s' is invalid", name, ex.BaseURL)
		}
	}

	return nil
}
