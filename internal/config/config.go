// Package config loads process-level settings from the environment. Engine
// scoring parameters live in the YAML file referenced by RISK_CONFIG_PATH and
// are loaded separately by the risk package.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries the process settings for the API server.
type Config struct {
	Host            string
	Port            int
	LogLevel        string
	RiskConfigPath  string
	ShutdownTimeout time.Duration
}

// LoadConfig reads process configuration from environment variables with
// documented defaults. It never reads the engine YAML itself.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RISK_CONFIG_PATH", "")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	cfg := &Config{
		Host:            v.GetString("HOST"),
		Port:            v.GetInt("PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		RiskConfigPath:  v.GetString("RISK_CONFIG_PATH"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
