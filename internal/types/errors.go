package types

import "errors"

// Sentinel errors for Hookwise operations.
var (
	// ErrFieldNotFound indicates a dotted field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrUnknownOperator indicates an operator token outside the rule language.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidPattern indicates a regex condition whose pattern does not compile.
	ErrInvalidPattern = errors.New("invalid regex pattern")

	// ErrRuleSetNotFound indicates no rule document exists for the team.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrCircuitOpen indicates a collection was refused by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrNoDataCollected indicates every registered source failed to produce data.
	ErrNoDataCollected = errors.New("no data collected from any source")

	// ErrSourceExists indicates a duplicate (source type, identifier) registration.
	ErrSourceExists = errors.New("data source already registered")
)
