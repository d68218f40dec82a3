// Package config loads tool configuration from a YAML file with
// environment-variable overrides. A .env file is honored when present so
// local development does not need exported shell state.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the resolved tool configuration.
type Config struct {
	// ChainID of the target network.
	ChainID int64 `yaml:"chain_id"`

	// HubAddress and DriverAddress are the deployed ledger contracts.
	HubAddress    string `yaml:"hub_address"`
	DriverAddress string `yaml:"driver_address"`

	// GasMultiplier pads externally-supplied gas estimates.
	GasMultiplier float64 `yaml:"gas_multiplier"`

	// CycleSeconds is the ledger's funding cycle length, used when
	// converting per-cycle amounts to per-second rates.
	CycleSeconds uint64 `yaml:"cycle_seconds"`

	// DatabasePath is the set-event cache location.
	DatabasePath string `yaml:"database_path"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Defaults mirror the most common deployment: week-long cycles and a 20%
// gas pad.
func defaults() Config {
	return Config{
		ChainID:       1,
		GasMultiplier: 1.2,
		CycleSeconds:  604800,
		DatabasePath:  "dripforge.db",
		LogLevel:      "info",
	}
}

// Load resolves configuration: defaults, then the YAML file at path (if
// non-empty), then environment variables. Returns a validation error if the
// result is unusable.
func Load(path string) (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ChainID = getEnvInt64("DRIPFORGE_CHAIN_ID", cfg.ChainID)
	cfg.HubAddress = getEnvString("DRIPFORGE_HUB_ADDRESS", cfg.HubAddress)
	cfg.DriverAddress = getEnvString("DRIPFORGE_DRIVER_ADDRESS", cfg.DriverAddress)
	cfg.GasMultiplier = getEnvFloat("DRIPFORGE_GAS_MULTIPLIER", cfg.GasMultiplier)
	cfg.CycleSeconds = getEnvUint64("DRIPFORGE_CYCLE_SECONDS", cfg.CycleSeconds)
	cfg.DatabasePath = getEnvString("DRIPFORGE_DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnvString("DRIPFORGE_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the resolved configuration for obvious misconfiguration.
func (c *Config) Validate() error {
	if c.HubAddress != "" && !common.IsHexAddress(c.HubAddress) {
		return fmt.Errorf("hub_address %q is not a hex address", c.HubAddress)
	}
	if c.DriverAddress != "" && !common.IsHexAddress(c.DriverAddress) {
		return fmt.Errorf("driver_address %q is not a hex address", c.DriverAddress)
	}
	if c.GasMultiplier < 1 {
		return fmt.Errorf("gas_multiplier %v must be >= 1", c.GasMultiplier)
	}
	if c.CycleSeconds == 0 {
		return fmt.Errorf("cycle_seconds must be positive")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
