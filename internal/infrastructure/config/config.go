package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic LwM2M client.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Client   ClientConfig   `yaml:"client"`
	Server   ServerConfig   `yaml:"server"`
	Device   DeviceConfig   `yaml:"device"`
	Pressure PressureConfig `yaml:"pressure"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ClientConfig identifies this client towards the management server.
type ClientConfig struct {
	// Endpoint is the LwM2M endpoint client name.
	Endpoint string `yaml:"endpoint"`

	// Lifetime is the registration lifetime in seconds.
	Lifetime int `yaml:"lifetime"`

	// Binding is the transport binding mode ("U", "UQ", "S", ...).
	Binding string `yaml:"binding"`

	// ShortServerID is the short ID linking the Security and Server objects.
	ShortServerID int `yaml:"short_server_id"`
}

// Security modes for the Security object (resource 2).
const (
	SecurityModePSK         = 0
	SecurityModeRawPublic   = 1
	SecurityModeCertificate = 2
	SecurityModeNone        = 3
)

// ServerConfig contains management server and credential settings.
type ServerConfig struct {
	// URI is the full server URI. When empty it is built from Host and Port.
	URI  string `yaml:"uri"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Bootstrap marks the server as a bootstrap server.
	Bootstrap bool `yaml:"bootstrap"`

	// SecurityMode is one of the SecurityMode* constants.
	SecurityMode int `yaml:"security_mode"`

	// PSKIdentity is the pre-shared key identity.
	PSKIdentity string `yaml:"psk_identity"`

	// PSKSecret is the pre-shared key in hexadecimal.
	PSKSecret string `yaml:"psk_secret"`

	// HoldOff is the client hold-off time in seconds.
	HoldOff int `yaml:"hold_off"`
}

// DeviceConfig describes the device reported in the Device object.
type DeviceConfig struct {
	Manufacturer    string `yaml:"manufacturer"`
	ModelNumber     string `yaml:"model_number"`
	SerialNumber    string `yaml:"serial_number"`
	FirmwareVersion string `yaml:"firmware_version"`
	Timezone        string `yaml:"timezone"`
}

// PressureConfig contains the analog pressure sensor settings.
type PressureConfig struct {
	Enabled bool `yaml:"enabled"`

	// InstanceID is the instance of object 3323 exposed for the sensor.
	InstanceID int `yaml:"instance_id"`

	// MinVoltage and MaxVoltage bound the analog input in volts.
	MinVoltage float64 `yaml:"min_voltage"`
	MaxVoltage float64 `yaml:"max_voltage"`

	// MinSensor and MaxSensor bound the sensor's measuring range.
	MinSensor float64 `yaml:"min_sensor"`
	MaxSensor float64 `yaml:"max_sensor"`

	Units           string `yaml:"units"`
	Calibration     string `yaml:"calibration"`
	ApplicationType string `yaml:"application_type"`

	// PollInterval is how often the sensor is sampled in seconds. 0 disables polling.
	PollInterval int `yaml:"poll_interval"`

	// Simulated replaces the analog input with a generated signal.
	Simulated bool `yaml:"simulated"`

	// InputPath is a file holding the raw analog reading, such as an IIO
	// in_voltage0_raw node. Used when Simulated is false.
	InputPath string `yaml:"input_path"`

	// InputScale converts the raw reading to millivolts.
	InputScale float64 `yaml:"input_scale"`
}

// DatabaseConfig contains SQLite database settings for the operation journal.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays prunes older journal entries at startup. 0 keeps all.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig     `yaml:"broker"`
	Auth        MQTTAuthConfig       `yaml:"auth"`
	QoS         int                  `yaml:"qos"`
	Reconnect   MQTTReconnectConfig  `yaml:"reconnect"`
	TopicPrefix string               `yaml:"topic_prefix"`
	Embedded    EmbeddedBrokerConfig `yaml:"embedded"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// EmbeddedBrokerConfig runs an in-process broker for standalone operation.
type EmbeddedBrokerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_CLIENT_ENDPOINT, GRAYLOGIC_SERVER_PSK_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file is given.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:      "graylogic-lwm2m",
			Lifetime:      30,
			Binding:       "U",
			ShortServerID: 123,
		},
		Server: ServerConfig{
			Host:         "localhost",
			Port:         5684,
			SecurityMode: SecurityModeNone,
			HoldOff:      10,
		},
		Device: DeviceConfig{
			Manufacturer:    "Open Mobile Alliance",
			ModelNumber:     "Lightweight M2M Client",
			SerialNumber:    "345000123",
			FirmwareVersion: "1.0",
			Timezone:        "UTC",
		},
		Pressure: PressureConfig{
			Enabled:         true,
			InstanceID:      1,
			MinVoltage:      0.5,
			MaxVoltage:      4.5,
			MinSensor:       0,
			MaxSensor:       100,
			Units:           "PSI",
			Calibration:     "Calibration 1",
			ApplicationType: "Line Pressure",
			PollInterval:    10,
			Simulated:       true,
			InputScale:      1,
		},
		Database: DatabaseConfig{
			Enabled:       true,
			Path:          "./data/lwm2m.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-lwm2m",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "lwm2m",
			Embedded: EmbeddedBrokerConfig{
				Host: "127.0.0.1",
				Port: 1883,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Client
	if v := os.Getenv("GRAYLOGIC_CLIENT_ENDPOINT"); v != "" {
		cfg.Client.Endpoint = v
	}

	// Server
	if v := os.Getenv("GRAYLOGIC_SERVER_URI"); v != "" {
		cfg.Server.URI = v
	}
	if v := os.Getenv("GRAYLOGIC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_SERVER_PSK_IDENTITY"); v != "" {
		cfg.Server.PSKIdentity = v
	}
	if v := os.Getenv("GRAYLOGIC_SERVER_PSK_SECRET"); v != "" {
		cfg.Server.PSKSecret = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Client validation
	if strings.TrimSpace(c.Client.Endpoint) == "" {
		errs = append(errs, "client.endpoint is required")
	}
	if c.Client.Lifetime < 1 {
		errs = append(errs, "client.lifetime must be at least 1 second")
	}
	if c.Client.Binding == "" {
		errs = append(errs, "client.binding is required")
	}
	if c.Client.ShortServerID < 1 || c.Client.ShortServerID > 65534 {
		errs = append(errs, "client.short_server_id must be between 1 and 65534")
	}

	// Server validation
	if c.Server.URI == "" && c.Server.Host == "" {
		errs = append(errs, "server.uri or server.host is required")
	}
	if c.Server.URI == "" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	switch c.Server.SecurityMode {
	case SecurityModePSK:
		if c.Server.PSKIdentity == "" {
			errs = append(errs, "server.psk_identity is required in PSK mode")
		}
		if c.Server.PSKSecret == "" {
			errs = append(errs, "server.psk_secret is required in PSK mode (set GRAYLOGIC_SERVER_PSK_SECRET)")
		} else if _, err := hex.DecodeString(c.Server.PSKSecret); err != nil {
			errs = append(errs, "server.psk_secret must be hexadecimal")
		}
	case SecurityModeRawPublic, SecurityModeCertificate, SecurityModeNone:
	default:
		errs = append(errs, "server.security_mode must be 0, 1, 2, or 3")
	}

	// Pressure validation
	if c.Pressure.Enabled {
		if c.Pressure.MaxVoltage <= c.Pressure.MinVoltage {
			errs = append(errs, "pressure.max_voltage must be greater than pressure.min_voltage")
		}
		if c.Pressure.MaxSensor <= c.Pressure.MinSensor {
			errs = append(errs, "pressure.max_sensor must be greater than pressure.min_sensor")
		}
		if c.Pressure.InstanceID < 0 || c.Pressure.InstanceID > 65534 {
			errs = append(errs, "pressure.instance_id must be between 0 and 65534")
		}
		if c.Pressure.PollInterval < 0 {
			errs = append(errs, "pressure.poll_interval must not be negative")
		}
		if !c.Pressure.Simulated {
			if c.Pressure.InputPath == "" {
				errs = append(errs, "pressure.input_path is required unless pressure.simulated is set")
			}
			if c.Pressure.InputScale <= 0 {
				errs = append(errs, "pressure.input_scale must be positive")
			}
		}
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	// Port 0 picks a free port.
	if c.MQTT.Embedded.Enabled && (c.MQTT.Embedded.Port < 0 || c.MQTT.Embedded.Port > 65535) {
		errs = append(errs, "mqtt.embedded.port must be between 0 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ServerURI returns the configured server URI, building
// "coaps://host:port" (or "coap://" without security) when none is set.
func (c *Config) ServerURI() string {
	if c.Server.URI != "" {
		return c.Server.URI
	}
	scheme := "coaps"
	if c.Server.SecurityMode == SecurityModeNone {
		scheme = "coap"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Server.Host, c.Server.Port)
}

// PSKSecretBytes decodes the hexadecimal pre-shared key.
func (c *Config) PSKSecretBytes() ([]byte, error) {
	b, err := hex.DecodeString(c.Server.PSKSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding psk secret: %w", err)
	}
	return b, nil
}

// GetPollInterval returns the pressure poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Pressure.PollInterval) * time.Second
}

// String returns a printable summary with secrets redacted.
func (c *Config) String() string {
	redacted := *c
	if redacted.Server.PSKSecret != "" {
		redacted.Server.PSKSecret = "[redacted]"
	}
	if redacted.MQTT.Auth.Password != "" {
		redacted.MQTT.Auth.Password = "[redacted]"
	}
	if redacted.InfluxDB.Token != "" {
		redacted.InfluxDB.Token = "[redacted]"
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}
