package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends supported by the station.
const (
	StoreBackendRTDB   = "rtdb"
	StoreBackendMQTT   = "mqtt"
	StoreBackendSQLite = "sqlite"
)

// Config is the root configuration structure for the beacon station.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Station      StationConfig      `yaml:"station"`
	Store        StoreConfig        `yaml:"store"`
	RTDB         RTDBConfig         `yaml:"rtdb"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Database     DatabaseConfig     `yaml:"database"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Scanner      ScannerConfig      `yaml:"scanner"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Indicator    IndicatorConfig    `yaml:"indicator"`
	API          APIConfig          `yaml:"api"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// StationConfig identifies this station and sets the loop cadence.
type StationConfig struct {
	// ID uniquely names the physical station, e.g. "station-a1b2".
	// It is used as a path segment when publishing observations.
	ID string `yaml:"id"`

	// SyncInterval is the minimum time between two sync cycles.
	// Default: 15s
	SyncInterval time.Duration `yaml:"sync_interval"`

	// PollInterval is how often the loop checks whether a cycle is due
	// and whether the provisioning trigger was raised.
	// Default: 250ms
	PollInterval time.Duration `yaml:"poll_interval"`
}

// StoreConfig selects the remote key-value store implementation.
type StoreConfig struct {
	// Backend is one of "rtdb", "mqtt" or "sqlite".
	Backend string `yaml:"backend"`

	// RequestTimeout bounds a single store read or write.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RTDBConfig contains settings for a Firebase-compatible realtime database.
type RTDBConfig struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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
}

// DatabaseConfig contains SQLite settings for the local store backend.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
// When enabled, every published observation is mirrored as a point.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// ScannerConfig contains BLE scanner settings.
type ScannerConfig struct {
	// Duration is how long each sweep listens for advertisements.
	// Default: 5s
	Duration time.Duration `yaml:"duration"`
}

// ProvisioningConfig contains network provisioning settings.
type ProvisioningConfig struct {
	// SSIDPrefix is prepended to the last segment of the station ID to form
	// the provisioning network name. Default: "Station-"
	SSIDPrefix string `yaml:"ssid_prefix"`

	// MaxAttempts bounds connection attempts at boot before the station
	// restarts itself. Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the pause between connection attempts. Default: 5s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// ConnectCommand joins or provisions the network. "{ssid}" is replaced
	// with the provisioning network name. Empty means "already connected".
	ConnectCommand string `yaml:"connect_command"`

	// StatusCommand exits 0 when the network is up.
	StatusCommand string `yaml:"status_command"`

	// ResetCommand wipes stored network credentials.
	ResetCommand string `yaml:"reset_command"`
}

// IndicatorConfig contains status LED settings.
type IndicatorConfig struct {
	// LEDPath is a sysfs LED directory, e.g. "/sys/class/leds/led0".
	// Empty disables the LED; indicator changes are only logged.
	LEDPath string `yaml:"led_path"`
}

// APIConfig contains the status HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APIAuthConfig contains bearer token settings for the control routes
// (provisioning reset and the cycle stream).
type APIAuthConfig struct {
	// Secret is the HS256 key tokens are signed with. When empty the
	// control routes reject every request.
	Secret string `yaml:"secret"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket settings for the cycle stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`

	// AllowedOrigins lists browser origins allowed to open the stream in
	// addition to the API's own host.
	AllowedOrigins []string `yaml:"allowed_origins"`
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
// Environment variables follow the pattern: STATION_SECTION_KEY
// For example: STATION_ID, STATION_RTDB_AUTH_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

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

// Default returns a Config populated with the station's default values.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			SyncInterval: 15 * time.Second,
			PollInterval: 250 * time.Millisecond,
		},
		Store: StoreConfig{
			Backend:        StoreBackendRTDB,
			RequestTimeout: 10 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:         1,
			TopicPrefix: "presence",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/station.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Scanner: ScannerConfig{
			Duration: 5 * time.Second,
		},
		Provisioning: ProvisioningConfig{
			SSIDPrefix:  "Station-",
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: STATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STATION_ID"); v != "" {
		cfg.Station.ID = v
	}
	if v := os.Getenv("STATION_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}

	// RTDB
	if v := os.Getenv("STATION_RTDB_URL"); v != "" {
		cfg.RTDB.URL = v
	}
	if v := os.Getenv("STATION_RTDB_AUTH_TOKEN"); v != "" {
		cfg.RTDB.AuthToken = v
	}

	// MQTT
	if v := os.Getenv("STATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("STATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("STATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API token signing key
	if v := os.Getenv("STATION_API_AUTH_SECRET"); v != "" {
		cfg.API.Auth.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Station.ID == "" {
		errs = append(errs, "station.id is required (set STATION_ID environment variable)")
	}
	if c.Station.SyncInterval <= 0 {
		errs = append(errs, "station.sync_interval must be positive")
	}
	if c.Station.PollInterval <= 0 {
		errs = append(errs, "station.poll_interval must be positive")
	}

	switch c.Store.Backend {
	case StoreBackendRTDB:
		if c.RTDB.URL == "" {
			errs = append(errs, "rtdb.url is required for the rtdb store backend")
		}
	case StoreBackendMQTT:
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required for the mqtt store backend")
		}
	case StoreBackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite store backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q is not one of rtdb, mqtt, sqlite", c.Store.Backend))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Scanner.Duration <= 0 {
		errs = append(errs, "scanner.duration must be positive")
	}

	if c.Provisioning.MaxAttempts < 1 {
		errs = append(errs, "provisioning.max_attempts must be at least 1")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	const minAuthSecretLength = 32
	if c.API.Auth.Secret != "" && len(c.API.Auth.Secret) < minAuthSecretLength {
		errs = append(errs, "api.auth.secret must be at least 32 characters")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ProvisioningSSID returns the network name advertised while provisioning.
// It is the SSID prefix followed by the last '-'-separated segment of the station ID,
// so "station-a1b2" becomes "Station-a1b2".
func (c *Config) ProvisioningSSID() string {
	id := c.Station.ID
	if i := strings.LastIndex(id, "-"); i >= 0 {
		id = id[i+1:]
	}
	return c.Provisioning.SSIDPrefix + id
}

// ReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
