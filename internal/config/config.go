package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"

	"surety_ledger/internal/accounting"
	"surety_ledger/internal/ledger"
)

// maxFeeUnits is the largest whole-unit fee that still fits in cents.
const maxFeeUnits = math.MaxInt64 / 100

// Config holds all configuration for the ledger daemon
type Config struct {
	DBPath             string
	Owner              string
	RegistrationFee    int64 // whole value-units
	MaxInsuranceFee    int64 // whole value-units
	MinPremiumCents    int64
	CheckpointInterval int // seconds
	Log                LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("db_path", "surety_ledger.db")
	v.SetDefault("owner", "")
	v.SetDefault("registration_fee", 10)
	v.SetDefault("max_insurance_fee", 1)
	v.SetDefault("min_premium_cents", 1)
	v.SetDefault("checkpoint_interval", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/surety_ledger")
	v.AddConfigPath(".")

	if configPath := os.Getenv("SURETY_LEDGER_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults + env vars
	}

	v.SetEnvPrefix("SURETY_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DBPath:             v.GetString("db_path"),
		Owner:              v.GetString("owner"),
		RegistrationFee:    v.GetInt64("registration_fee"),
		MaxInsuranceFee:    v.GetInt64("max_insurance_fee"),
		MinPremiumCents:    v.GetInt64("min_premium_cents"),
		CheckpointInterval: v.GetInt("checkpoint_interval"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LedgerParams converts the configured fee schedule to ledger parameters
func (c *Config) LedgerParams() ledger.Params {
	return ledger.Params{
		RegistrationFee: accounting.FromUnits(c.RegistrationFee),
		MaxInsuranceFee: accounting.FromUnits(c.MaxInsuranceFee),
		MinPremium:      accounting.Cents(c.MinPremiumCents),
	}
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if cfg.Owner == "" {
		return fmt.Errorf("owner is required")
	}

	// Fees are configured in whole units but held in cents; anything beyond
	// maxFeeUnits would not be representable.
	if cfg.RegistrationFee <= 0 || cfg.RegistrationFee > maxFeeUnits {
		return fmt.Errorf("registration_fee must be between 1 and %d", int64(maxFeeUnits))
	}

	if cfg.MaxInsuranceFee <= 0 || cfg.MaxInsuranceFee > maxFeeUnits {
		return fmt.Errorf("max_insurance_fee must be between 1 and %d", int64(maxFeeUnits))
	}

	if cfg.MinPremiumCents <= 0 || cfg.MinPremiumCents > cfg.MaxInsuranceFee*100 {
		return fmt.Errorf("min_premium_cents must be between 1 and the insurance fee cap")
	}

	if cfg.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint_interval must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
