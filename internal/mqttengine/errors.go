package mqttengine

import "errors"

var (
	// ErrClientRequired is returned by New without an MQTT client.
	ErrClientRequired = errors.New("mqttengine: mqtt client is required")

	// ErrAlreadyRunning is returned when Run is called while a run is active.
	ErrAlreadyRunning = errors.New("mqttengine: already running")

	// ErrInvalidRequest marks a request that cannot be dispatched.
	ErrInvalidRequest = errors.New("mqttengine: invalid request")
)
