package engine

import "errors"

// Domain errors for the engine bridge.
var (
	// ErrEngineRequired is returned when a bridge is created without an engine.
	ErrEngineRequired = errors.New("engine: engine is required")

	// ErrAlreadyRunning is returned when Start is called on a running bridge.
	ErrAlreadyRunning = errors.New("engine: bridge already running")
)
