package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/errors"

	"gopkg.in/yaml.v3"
)

// Config is a struct that holds application configuration
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Sampler SamplerConfig `yaml:"sampler"`
	Network NetworkConfig `yaml:"network"`
	Journal JournalConfig `yaml:"journal"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
}

// AgentConfig is a struct that holds agent-wide settings
type AgentConfig struct {
	NodeName       string        `yaml:"node_name"`
	LogLevel       string        `yaml:"log_level"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// SamplerConfig is a struct that holds throughput sampler settings
type SamplerConfig struct {
	Interval           time.Duration `yaml:"interval"`
	BackoffEnabled     bool          `yaml:"backoff_enabled"`
	BackoffMaxInterval time.Duration `yaml:"backoff_max_interval"`
	BackoffMultiplier  float64       `yaml:"backoff_multiplier"`
}

// NetworkConfig is a struct that holds backend and inventory settings
type NetworkConfig struct {
	Backend          string   `yaml:"backend"`
	ExcludedPrefixes []string `yaml:"excluded_prefixes"`
	EnabledTokens    []string `yaml:"enabled_tokens"`
}

// JournalConfig is a struct that holds snapshot journal settings
type JournalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	Retention int    `yaml:"retention"`
}

// HistoryConfig is a struct that holds transaction history settings
type HistoryConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig is a struct that holds database configuration
type DatabaseConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"name"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxLifetime  time.Duration `yaml:"max_lifetime"`
}

// ServerConfig is a struct that holds the HTTP listener configuration
type ServerConfig struct {
	Port string `yaml:"port"`
}

// ConfigLoader is an interface for loading configuration
type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvironmentConfigLoader loads defaults, then the optional CONFIG_FILE, then environment variables
type EnvironmentConfigLoader struct{}

// NewEnvironmentConfigLoader creates a new EnvironmentConfigLoader
func NewEnvironmentConfigLoader() ConfigLoader {
	return &EnvironmentConfigLoader{}
}

// Default returns the built-in configuration
func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Agent: AgentConfig{
			NodeName:       hostname,
			LogLevel:       "info",
			CommandTimeout: constants.DefaultCommandTimeout,
		},
		Sampler: SamplerConfig{
			Interval:           constants.DefaultSampleInterval,
			BackoffEnabled:     false,
			BackoffMaxInterval: 30 * time.Second,
			BackoffMultiplier:  2.0,
		},
		Network: NetworkConfig{
			Backend:          "auto",
			ExcludedPrefixes: append([]string(nil), constants.DefaultExcludedPrefixes...),
			EnabledTokens:    append([]string(nil), constants.DefaultEnabledTokens...),
		},
		Journal: JournalConfig{
			Enabled:   true,
			Directory: constants.DefaultJournalDir,
			Retention: 50,
		},
		History: HistoryConfig{
			Enabled: false,
			Database: DatabaseConfig{
				Host:         "localhost",
				Port:         "3306",
				User:         "root",
				Database:     "multinic_bond",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
				MaxLifetime:  5 * time.Minute,
			},
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load loads configuration
func (l *EnvironmentConfigLoader) Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	applyEnv(config)

	if err := l.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overrides file/default values with environment variables
func applyEnv(c *Config) {
	c.Agent.NodeName = getEnvOrDefault("NODE_NAME", c.Agent.NodeName)
	c.Agent.LogLevel = getEnvOrDefault("LOG_LEVEL", c.Agent.LogLevel)
	c.Agent.CommandTimeout = getEnvDurationOrDefault("COMMAND_TIMEOUT", c.Agent.CommandTimeout)

	c.Sampler.Interval = getEnvDurationOrDefault("SAMPLE_INTERVAL", c.Sampler.Interval)
	c.Sampler.BackoffEnabled = getEnvBoolOrDefault("SAMPLER_BACKOFF_ENABLED", c.Sampler.BackoffEnabled)
	c.Sampler.BackoffMaxInterval = getEnvDurationOrDefault("SAMPLER_BACKOFF_MAX_INTERVAL", c.Sampler.BackoffMaxInterval)
	c.Sampler.BackoffMultiplier = getEnvFloatOrDefault("SAMPLER_BACKOFF_MULTIPLIER", c.Sampler.BackoffMultiplier)

	c.Network.Backend = strings.ToLower(getEnvOrDefault("BACKEND", c.Network.Backend))
	c.Network.ExcludedPrefixes = getEnvListOrDefault("EXCLUDED_PREFIXES", c.Network.ExcludedPrefixes)
	c.Network.EnabledTokens = getEnvListOrDefault("ENABLED_TOKENS", c.Network.EnabledTokens)

	c.Journal.Enabled = getEnvBoolOrDefault("JOURNAL_ENABLED", c.Journal.Enabled)
	c.Journal.Directory = getEnvOrDefault("JOURNAL_DIR", c.Journal.Directory)
	c.Journal.Retention = getEnvIntOrDefault("JOURNAL_RETENTION", c.Journal.Retention)

	c.History.Enabled = getEnvBoolOrDefault("HISTORY_ENABLED", c.History.Enabled)
	db := &c.History.Database
	db.Host = getEnvOrDefault("DB_HOST", db.Host)
	db.Port = getEnvOrDefault("DB_PORT", db.Port)
	db.User = getEnvOrDefault("DB_USER", db.User)
	db.Password = getEnvOrDefault("DB_PASSWORD", db.Password)
	db.Database = getEnvOrDefault("DB_NAME", db.Database)
	db.MaxOpenConns = getEnvIntOrDefault("DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvIntOrDefault("DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.MaxLifetime = getEnvDurationOrDefault("DB_MAX_LIFETIME", db.MaxLifetime)

	c.Server.Port = getEnvOrDefault("HTTP_PORT", c.Server.Port)
}

// validate validates the configuration
func (l *EnvironmentConfigLoader) validate(config *Config) error {
	if config.Agent.CommandTimeout <= 0 {
		return errors.NewValidationError("invalid command timeout", nil)
	}

	if config.Sampler.Interval <= 0 {
		return errors.NewValidationError("invalid sample interval", nil)
	}
	if config.Sampler.BackoffEnabled {
		if config.Sampler.BackoffMultiplier <= 1 {
			return errors.NewValidationError("sampler backoff multiplier must be greater than 1", nil)
		}
		if config.Sampler.BackoffMaxInterval < config.Sampler.Interval {
			return errors.NewValidationError("sampler backoff max interval is shorter than the sample interval", nil)
		}
	}

	switch config.Network.Backend {
	case "auto", "netsh", "iproute":
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown backend %q (auto, netsh, iproute)", config.Network.Backend), nil)
	}
	if len(config.Network.EnabledTokens) == 0 {
		return errors.NewValidationError("enabled tokens not configured", nil)
	}

	if config.Journal.Enabled && config.Journal.Directory == "" {
		return errors.NewValidationError("journal directory not configured", nil)
	}

	if config.History.Enabled {
		db := config.History.Database
		if db.Host == "" {
			return errors.NewValidationError("database host not configured", nil)
		}
		if db.Port == "" {
			return errors.NewValidationError("database port not configured", nil)
		}
		if db.User == "" {
			return errors.NewValidationError("database user not configured", nil)
		}
		if db.Database == "" {
			return errors.NewValidationError("database name not configured", nil)
		}
	}

	if config.Server.Port == "" {
		return errors.NewValidationError("http port not configured", nil)
	}

	return nil
}

// DSN returns the go-sql-driver/mysql data source name
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// Environment variable helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
