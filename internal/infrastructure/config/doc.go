// Package config handles loading and validating the LwM2M client configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GRAYLOGIC_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The PSK secret, MQTT password and InfluxDB token should be set via
//     environment variables
//   - String() redacts secrets so the config can be logged
//
// Usage:
//
//	cfg, err := config.Load("configs/lwm2m.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ServerURI())
package config
