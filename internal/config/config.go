package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicGNSSTime       string
	TopicGNSSPosition   string
	TopicGNSSSatellites string

	// GPS receiver
	GPSSerialPort string
	GPSBaudRate   int
	// Systems the receiver is configured to track, e.g. "GPS,GLONASS,SBAS_EGNOS"
	GNSSActivatedSystems gnss.System

	// Optional sinks, disabled when empty
	NATSURL         string
	RedisAddr       string
	RedisTTLSeconds int

	// Timing
	MockInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Defaults for keys that may be left out of the file.
const (
	DefaultTopicGNSSTime       = "gnss/time"
	DefaultTopicGNSSPosition   = "gnss/position"
	DefaultTopicGNSSSatellites = "gnss/satellites"

	DefaultGPSBaudRate           = 9600
	DefaultRedisTTLSeconds       = 10
	DefaultMockInterval          = 1000
	DefaultWebServerPort         = 8080
	DefaultDisplayI2CAddr        = 0x3C
	DefaultDisplayUpdateInterval = 1000
)

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get, set once by InitGlobal.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the KEY=VALUE configuration file and returns a Config struct.
// Comments (#), blank lines, quoting and "export" prefixes are handled by godotenv.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromValues(values)
}

// FromValues builds a Config from already parsed key/value pairs.
func FromValues(values map[string]string) (*Config, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// deterministic error reporting
	sort.Strings(keys)

	// zero is a valid TTL (no expiry), so this default cannot wait for applyDefaults
	cfg := &Config{RedisTTLSeconds: DefaultRedisTTLSeconds}
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GNSS_TIME":
		c.TopicGNSSTime = value
	case "TOPIC_GNSS_POSITION":
		c.TopicGNSSPosition = value
	case "TOPIC_GNSS_SATELLITES":
		c.TopicGNSSSatellites = value

	// GPS receiver
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", rate)
		}
		c.GPSBaudRate = rate
	case "GNSS_ACTIVATED_SYSTEMS":
		systems, err := gnss.ParseSystems(value)
		if err != nil {
			return fmt.Errorf("invalid GNSS_ACTIVATED_SYSTEMS %q: %w", value, err)
		}
		c.GNSSActivatedSystems = systems

	// Sinks
	case "NATS_URL":
		c.NATSURL = value
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_TTL_SECONDS":
		ttl, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REDIS_TTL_SECONDS %q: %w", value, err)
		}
		if ttl < 0 {
			return fmt.Errorf("REDIS_TTL_SECONDS must not be negative, got %d", ttl)
		}
		c.RedisTTLSeconds = ttl

	// Timing
	case "MOCK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_INTERVAL %q: %w", value, err)
		}
		c.MockInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.MQTTClientIDProducer, "gnss-producer")
	setDefault(&c.MQTTClientIDGPS, "gnss-gps-producer")
	setDefault(&c.MQTTClientIDConsole, "gnss-console")
	setDefault(&c.MQTTClientIDWeb, "gnss-web")
	setDefault(&c.MQTTClientIDDisplay, "gnss-display")

	setDefault(&c.TopicGNSSTime, DefaultTopicGNSSTime)
	setDefault(&c.TopicGNSSPosition, DefaultTopicGNSSPosition)
	setDefault(&c.TopicGNSSSatellites, DefaultTopicGNSSSatellites)

	if c.GPSBaudRate == 0 {
		c.GPSBaudRate = DefaultGPSBaudRate
	}
	if c.MockInterval == 0 {
		c.MockInterval = DefaultMockInterval
	}
	if c.WebServerPort == 0 {
		c.WebServerPort = DefaultWebServerPort
	}
	if c.DisplayI2CAddr == 0 {
		c.DisplayI2CAddr = DefaultDisplayI2CAddr
	}
	if c.DisplayUpdateInterval == 0 {
		c.DisplayUpdateInterval = DefaultDisplayUpdateInterval
	}
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.MockInterval < 0 {
		return fmt.Errorf("MOCK_INTERVAL must not be negative")
	}
	if c.DisplayUpdateInterval < 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must not be negative")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
