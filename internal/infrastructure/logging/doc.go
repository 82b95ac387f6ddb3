// Package logging builds the structured logger shared by every component
// of the LwM2M client.
//
// It is a thin layer over log/slog: JSON or text output, a level from the
// configuration, and service/version fields on every entry. Components
// take a child logger tagged with their name:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("mqttengine").Info("endpoint registered", "endpoint", cfg.Client.Endpoint)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Attributes named psk_secret, secret_key, password or token are replaced
// with [REDACTED] before output. Prefer config.Config.String() when logging
// configuration.
package logging
