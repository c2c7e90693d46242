// Package config loads the service configuration from an optional YAML file
// and TASKRUNNER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Sandbox       SandboxConfig       `mapstructure:"sandbox"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port"`

	// Rate limit applied to execution launches, per client.
	// ExecuteRate=0 means unlimited.
	ExecuteRate  float64 `mapstructure:"execute_rate"`
	ExecuteBurst int     `mapstructure:"execute_burst"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// SandboxConfig holds the sandbox driver settings.
type SandboxConfig struct {
	Namespace      string `mapstructure:"namespace"`
	Image          string `mapstructure:"image"`
	ServiceAccount string `mapstructure:"service_account"`
	CPULimit       string `mapstructure:"cpu_limit"`
	MemoryLimit    string `mapstructure:"memory_limit"`

	// Timeout bounds how long one execution may run before the sandbox
	// is torn down.
	Timeout time.Duration `mapstructure:"timeout"`

	// FallbackEnabled allows commands to run in a local process when the
	// cluster is unreachable.
	FallbackEnabled bool `mapstructure:"fallback_enabled"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ObservabilityConfig holds the tracing settings.
type ObservabilityConfig struct {
	// OTLPEndpoint is the gRPC address of the trace collector.
	// Empty disables trace export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load reads the configuration. cfgFile may name an explicit YAML file;
// when empty, taskrunner.yaml is looked up in the working directory and
// /etc/taskrunner, and missing files fall back to defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("taskrunner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/taskrunner")
	}

	v.SetEnvPrefix("TASKRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.execute_rate", 1)
	v.SetDefault("server.execute_burst", 3)
	v.SetDefault("database.url", "")
	v.SetDefault("sandbox.namespace", "default")
	v.SetDefault("sandbox.image", "busybox:stable")
	v.SetDefault("sandbox.service_account", "")
	v.SetDefault("sandbox.cpu_limit", "500m")
	v.SetDefault("sandbox.memory_limit", "256Mi")
	v.SetDefault("sandbox.timeout", "60s")
	v.SetDefault("sandbox.fallback_enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("observability.otlp_endpoint", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if c.Server.ExecuteRate < 0 {
		return fmt.Errorf("server.execute_rate must not be negative, got: %v", c.Server.ExecuteRate)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox.timeout must be positive, got: %v", c.Sandbox.Timeout)
	}

	supportedLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !supportedLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
