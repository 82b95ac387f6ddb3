package broker

import "errors"

var (
	// ErrNotRunning is returned by operations that need a started broker.
	ErrNotRunning = errors.New("broker: not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("broker: already running")

	// ErrStartFailed wraps listener and hook setup failures.
	ErrStartFailed = errors.New("broker: start failed")
)
