// Package core wires the rule engine and the aggregation engine into one
// explicitly constructed Service, replacing module-level singletons. The
// external dispatcher owns exactly one Service per process: constructed at
// startup, passed by handle, torn down at shutdown.
package core

import (
	"fmt"
	"log/slog"

	"github.com/hookwise/hookwise/internal/aggregate"
	"github.com/hookwise/hookwise/internal/core/config"
	"github.com/hookwise/hookwise/internal/core/db"
	"github.com/hookwise/hookwise/internal/rules"
)

// Service is the in-process composition root for both engines.
type Service struct {
	Engine     *rules.Engine
	Aggregator *aggregate.Aggregator
	Config     *config.Config
}

// NewService builds both engines from configuration. When cfg.CacheURL is
// set, the aggregator's fallback cache is backed by the database store;
// otherwise it stays in memory.
func NewService(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := rules.NewStore(cfg.RulesDir, cfg.RuleCacheTTL, logger)
	engine := rules.NewEngine(store, logger)

	var cache aggregate.Cache
	if cfg.CacheURL != "" {
		conn, err := db.Open(cfg.CacheURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		cache, err = db.NewCacheStore(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	aggregator := aggregate.NewAggregator(aggregate.Options{
		FailureThreshold:  cfg.FailureThreshold,
		RecoveryTimeout:   cfg.RecoveryTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		BackoffFactor:     cfg.BackoffFactor,
		CollectionTimeout: cfg.CollectionTimeout,
		MaxDataAge:        cfg.MaxDataAge,
	}, cache, logger)

	return &Service{
		Engine:     engine,
		Aggregator: aggregator,
		Config:     cfg,
	}, nil
}
