package models

import "errors"

// Error taxonomy shared by the stores, the engine, and the HTTP layer.
// Callers classify with errors.Is; wrapped messages carry the detail.
var (
	// ErrInvalidArgument marks a malformed query or configuration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a store lookup of an id that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable marks a backing store that cannot be reached.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	// ErrNoRulesConfigured marks an engine constructed without any rules.
	ErrNoRulesConfigured = errors.New("no inference rules configured")

	// ErrGenerationUnavailable marks a text-generation capability failure.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
)
