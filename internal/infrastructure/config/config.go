package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Protocol generations the simulator can serve.
const (
	GenerationAuto   = "auto"
	GenerationLegacy = "v1"
	GenerationClipV2 = "v2"
)

// Snapshot storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// ClipV2MinSwVersion is the lowest bridge software version that speaks the
// resource-graph protocol. Below it the legacy flat-group protocol is served.
const ClipV2MinSwVersion = 1941088000

// Config is the root configuration structure for the bridge simulator.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Stream    StreamConfig    `yaml:"stream"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BridgeConfig describes the simulated bridge: the config.json fields it
// reports and the static identity handed out by the claim request.
type BridgeConfig struct {
	Name       string `yaml:"name"`
	ModelID    string `yaml:"modelid"`
	BridgeID   string `yaml:"bridgeid"`
	APIVersion string `yaml:"apiversion"`
	SwVersion  string `yaml:"swversion"`
	MAC        string `yaml:"mac"`

	// Username and ClientKey are returned by POST /api.
	Username  string `yaml:"username"`
	ClientKey string `yaml:"client_key"`

	// ApplicationID is returned by GET /auth/v1 and owns resource-graph streams.
	ApplicationID string `yaml:"application_id"`

	// Generation is "auto", "v1" or "v2". Auto derives it from SwVersion.
	Generation string `yaml:"generation"`
}

// StorageConfig selects where resource snapshots are kept.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
// Write is zero by default because the event stream is long-lived.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the colour display hub.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// StreamConfig contains entertainment stream ingestion settings.
type StreamConfig struct {
	// UDPHost and UDPPort locate the frame receiver. Port 0 disables it.
	UDPHost string `yaml:"udp_host"`
	UDPPort int    `yaml:"udp_port"`

	// PollInterval is the decode tick in milliseconds.
	PollInterval int `yaml:"poll_interval_ms"`

	// SessionTimeout is the idle watchdog duration in milliseconds.
	SessionTimeout int `yaml:"session_timeout_ms"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
// A missing file is not an error: the defaults are used as-is.
// Environment variables follow the pattern: BRIDGESIM_SECTION_KEY
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Name:          "Hue Bridge Simulator",
			ModelID:       "BSB002",
			BridgeID:      "LOCALHOST",
			APIVersion:    "1.24.0",
			SwVersion:     "1944193080",
			MAC:           "00:17:88:00:00:00",
			Username:      "aSimulatedUser",
			ClientKey:     "01234567890123456789012345678901",
			ApplicationID: "abcdef01-0123-0123-0123-abcdef012345",
			Generation:    GenerationAuto,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			Dir:     "./data/config",
		},
		Database: DatabaseConfig{
			Path:        "./data/bridgesim.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 80,
			Timeouts: APITimeoutConfig{
				Read: 30,
				Idle: 60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/develop/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Stream: StreamConfig{
			UDPHost:        "0.0.0.0",
			UDPPort:        2100,
			PollInterval:   50,
			SessionTimeout: 10000,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "bridgesim",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "bridgesim",
			Bucket:        "stream",
			BatchSize:     500,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BRIDGESIM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("BRIDGESIM_BRIDGE_GENERATION"); v != "" {
		cfg.Bridge.Generation = v
	}
	if v := os.Getenv("BRIDGESIM_BRIDGE_SWVERSION"); v != "" {
		cfg.Bridge.SwVersion = v
	}

	// Storage
	if v := os.Getenv("BRIDGESIM_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("BRIDGESIM_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}

	// Database
	if v := os.Getenv("BRIDGESIM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("BRIDGESIM_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("BRIDGESIM_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("BRIDGESIM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BRIDGESIM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BRIDGESIM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("BRIDGESIM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Bridge.Generation {
	case GenerationAuto, GenerationLegacy, GenerationClipV2:
	default:
		errs = append(errs, "bridge.generation must be auto, v1 or v2")
	}
	if c.Bridge.Username == "" {
		errs = append(errs, "bridge.username is required")
	}
	if c.Bridge.ApplicationID == "" {
		errs = append(errs, "bridge.application_id is required")
	}
	if c.Bridge.Generation == GenerationAuto {
		if _, err := strconv.ParseInt(c.Bridge.SwVersion, 10, 64); err != nil {
			errs = append(errs, "bridge.swversion must be numeric when generation is auto")
		}
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the file backend")
		}
	case StorageSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, "storage.backend must be file or sqlite")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Stream.UDPPort < 0 || c.Stream.UDPPort > 65535 {
		errs = append(errs, "stream.udp_port must be between 0 and 65535")
	}
	if c.Stream.PollInterval <= 0 {
		errs = append(errs, "stream.poll_interval_ms must be positive")
	}
	if c.Stream.SessionTimeout <= 0 {
		errs = append(errs, "stream.session_timeout_ms must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ResolveGeneration returns the protocol generation to serve, deriving it
// from the bridge software version when Generation is auto.
func (c *Config) ResolveGeneration() string {
	if c.Bridge.Generation != GenerationAuto {
		return c.Bridge.Generation
	}
	sw, err := strconv.ParseInt(c.Bridge.SwVersion, 10, 64)
	if err == nil && sw >= ClipV2MinSwVersion {
		return GenerationClipV2
	}
	return GenerationLegacy
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetPollInterval returns the stream decode tick as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Stream.PollInterval) * time.Millisecond
}

// GetSessionTimeout returns the streaming idle watchdog duration.
func (c *Config) GetSessionTimeout() time.Duration {
	return time.Duration(c.Stream.SessionTimeout) * time.Millisecond
}
