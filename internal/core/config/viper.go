package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults mirror DefaultConfig
	v.SetDefault("rules.dir", "./rules")
	v.SetDefault("rules.cache_ttl", "300s")
	v.SetDefault("aggregator.failure_threshold", 5)
	v.SetDefault("aggregator.recovery_timeout", "60s")
	v.SetDefault("aggregator.max_retries", 3)
	v.SetDefault("aggregator.retry_delay", "1s")
	v.SetDefault("aggregator.backoff_factor", 2.0)
	v.SetDefault("aggregator.collection_timeout", "30s")
	v.SetDefault("aggregator.min_quality", 0.5)
	v.SetDefault("aggregator.max_data_age", "24h")
	v.SetDefault("aggregator.cache_url", "")

	// Bind environment variables with HW_ prefix
	v.SetEnvPrefix("HW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		RulesDir:          v.GetString("rules.dir"),
		RuleCacheTTL:      v.GetDuration("rules.cache_ttl"),
		FailureThreshold:  v.GetInt("aggregator.failure_threshold"),
		RecoveryTimeout:   v.GetDuration("aggregator.recovery_timeout"),
		MaxRetries:        v.GetInt("aggregator.max_retries"),
		RetryDelay:        v.GetDuration("aggregator.retry_delay"),
		BackoffFactor:     v.GetFloat64("aggregator.backoff_factor"),
		CollectionTimeout: v.GetDuration("aggregator.collection_timeout"),
		MinQuality:        v.GetFloat64("aggregator.min_quality"),
		MaxDataAge:        v.GetDuration("aggregator.max_data_age"),
		CacheURL:          v.GetString("aggregator.cache_url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig checks that every tunable is in a sane range.
func validateConfig(cfg *Config) error {
	if cfg.RulesDir == "" {
		return fmt.Errorf("rules.dir must not be empty")
	}
	if cfg.RuleCacheTTL <= 0 {
		return fmt.Errorf("rules.cache_ttl must be positive, got %v", cfg.RuleCacheTTL)
	}
	if cfg.FailureThreshold <= 0 {
		return fmt.Errorf("aggregator.failure_threshold must be positive, got %d", cfg.FailureThreshold)
	}
	if cfg.RecoveryTimeout <= 0 {
		return fmt.Errorf("aggregator.recovery_timeout must be positive, got %v", cfg.RecoveryTimeout)
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("aggregator.max_retries must be positive, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay <= 0 {
		return fmt.Errorf("aggregator.retry_delay must be positive, got %v", cfg.RetryDelay)
	}
	if cfg.BackoffFactor < 1.0 {
		return fmt.Errorf("aggregator.backoff_factor must be >= 1.0, got %v", cfg.BackoffFactor)
	}
	if cfg.CollectionTimeout <= 0 {
		return fmt.Errorf("aggregator.collection_timeout must be positive, got %v", cfg.CollectionTimeout)
	}
	if cfg.MinQuality < 0 || cfg.MinQuality > 1 {
		return fmt.Errorf("aggregator.min_quality must be in [0,1], got %v", cfg.MinQuality)
	}
	if cfg.MaxDataAge <= 0 {
		return fmt.Errorf("aggregator.max_data_age must be positive, got %v", cfg.MaxDataAge)
	}
	return nil
}
