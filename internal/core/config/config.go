// Package config provides configuration management for Hookwise components.
package config

import "time"

// Config holds settings for the rule engine and the aggregation engine.
type Config struct {
	// Rule engine
	RulesDir     string
	RuleCacheTTL time.Duration

	// Aggregation engine
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	BackoffFactor     float64
	CollectionTimeout time.Duration
	MinQuality        float64
	MaxDataAge        time.Duration

	// Optional persistent fallback cache (sqlite:// or postgres:// URL).
	// Empty means in-memory.
	CacheURL string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		RulesDir:          "./rules",
		RuleCacheTTL:      300 * time.Second,
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		BackoffFactor:     2.0,
		CollectionTimeout: 30 * time.Second,
		MinQuality:        0.5,
		MaxDataAge:        24 * time.Hour,
	}
}
