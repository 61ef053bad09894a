package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gnss_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "# minimal\nMQTT_BROKER=tcp://localhost:1883\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, DefaultTopicGNSSTime, cfg.TopicGNSSTime)
	assert.Equal(t, DefaultTopicGNSSPosition, cfg.TopicGNSSPosition)
	assert.Equal(t, DefaultTopicGNSSSatellites, cfg.TopicGNSSSatellites)
	assert.Equal(t, "gnss-gps-producer", cfg.MQTTClientIDGPS)
	assert.Equal(t, DefaultGPSBaudRate, cfg.GPSBaudRate)
	assert.Equal(t, DefaultWebServerPort, cfg.WebServerPort)
	assert.Equal(t, uint16(DefaultDisplayI2CAddr), cfg.DisplayI2CAddr)
	assert.Equal(t, gnss.System(0), cfg.GNSSActivatedSystems)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, DefaultRedisTTLSeconds, cfg.RedisTTLSeconds)
}

func TestRedisTTLZeroDisablesExpiry(t *testing.T) {
	cfg, err := FromValues(map[string]string{
		"MQTT_BROKER":       "tcp://localhost:1883",
		"REDIS_TTL_SECONDS": "0",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RedisTTLSeconds)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
MQTT_BROKER=tcp://pi.local:1883
MQTT_CLIENT_ID_GPS=gps-1
TOPIC_GNSS_POSITION="rover/position"
GPS_SERIAL_PORT=/dev/ttyUSB0
GPS_BAUD_RATE=115200
GNSS_ACTIVATED_SYSTEMS=GPS,GLONASS,SBAS_EGNOS
NATS_URL=nats://localhost:4222
REDIS_ADDR=localhost:6379
REDIS_TTL_SECONDS=30
MOCK_INTERVAL=200
WEB_SERVER_PORT=9000
DISPLAY_I2C_ADDR=0x3D
DISPLAY_UPDATE_INTERVAL=500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gps-1", cfg.MQTTClientIDGPS)
	assert.Equal(t, "rover/position", cfg.TopicGNSSPosition)
	assert.Equal(t, "/dev/ttyUSB0", cfg.GPSSerialPort)
	assert.Equal(t, 115200, cfg.GPSBaudRate)
	assert.Equal(t, gnss.SystemGPS|gnss.SystemGLONASS|gnss.SystemSBASEGNOS, cfg.GNSSActivatedSystems)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30, cfg.RedisTTLSeconds)
	assert.Equal(t, 200, cfg.MockInterval)
	assert.Equal(t, 9000, cfg.WebServerPort)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)
	assert.Equal(t, 500, cfg.DisplayUpdateInterval)
}

func TestFromValuesErrors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing broker", map[string]string{}},
		{"unknown key", map[string]string{"MQTT_BROKER": "x", "TOPIC_GPS": "gps"}},
		{"bad baud", map[string]string{"MQTT_BROKER": "x", "GPS_BAUD_RATE": "fast"}},
		{"negative baud", map[string]string{"MQTT_BROKER": "x", "GPS_BAUD_RATE": "-1"}},
		{"unknown system", map[string]string{"MQTT_BROKER": "x", "GNSS_ACTIVATED_SYSTEMS": "GPS,IRNSS"}},
		{"port range", map[string]string{"MQTT_BROKER": "x", "WEB_SERVER_PORT": "70000"}},
		{"negative ttl", map[string]string{"MQTT_BROKER": "x", "REDIS_TTL_SECONDS": "-5"}},
		{"bad i2c", map[string]string{"MQTT_BROKER": "x", "DISPLAY_I2C_ADDR": "0x10000"}},
		{"negative interval", map[string]string{"MQTT_BROKER": "x", "MOCK_INTERVAL": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromValues(tt.values)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestGlobal(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\n")

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, "tcp://localhost:1883", Get().MQTTBroker)

	// later calls are no-ops
	require.NoError(t, InitGlobal("/does/not/exist"))
	assert.Equal(t, "tcp://localhost:1883", Get().MQTTBroker)
}
