package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/radio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "data.csv", cfg.FeedSource)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout)
	assert.Zero(t, cfg.FeedRefreshInterval)
	assert.Equal(t, domain.RampLinear, cfg.ColorRamp)

	assert.Equal(t, LocationSim, cfg.LocationSource)
	assert.InDelta(t, 40.7128, cfg.SimCenterLat, 1e-9)
	assert.InDelta(t, -74.0060, cfg.SimCenterLon, 1e-9)
	assert.Equal(t, time.Second, cfg.SimInterval)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "wearable-locations", cfg.KafkaLocationTopic)
	assert.Equal(t, "wearable-samples", cfg.KafkaSampleTopic)
	assert.Equal(t, "watchlink", cfg.KafkaGroupID)

	assert.Equal(t, SinkNone, cfg.SampleSink)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "watchlink.samples", cfg.NATSSubject)

	assert.False(t, cfg.RadioEnabled)
	assert.False(t, cfg.RadioAutoconnect)
	assert.Equal(t, radio.DefaultProfile(), cfg.RadioProfile)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FEED_SOURCE", "https://example.com/points.csv")
	t.Setenv("FEED_TIMEOUT", "3s")
	t.Setenv("FEED_REFRESH_INTERVAL", "5m")
	t.Setenv("COLOR_RAMP", "traffic-light")
	t.Setenv("LOCATION_SOURCE", "kafka")
	t.Setenv("SIM_CENTER_LAT", "51.5")
	t.Setenv("SIM_CENTER_LON", "-0.12")
	t.Setenv("SIM_INTERVAL", "250ms")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_LOCATION_TOPIC", "custom-locations")
	t.Setenv("KAFKA_SAMPLE_TOPIC", "custom-samples")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("SAMPLE_SINK", "nats")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NATS_SUBJECT", "custom.samples")
	t.Setenv("RADIO_ENABLED", "true")
	t.Setenv("RADIO_AUTOCONNECT", "true")
	t.Setenv("RADIO_DEVICE_NAME", "ESP32-Watch")
	t.Setenv("RADIO_SCAN_TIMEOUT", "20s")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://example.com/points.csv", cfg.FeedSource)
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 5*time.Minute, cfg.FeedRefreshInterval)
	assert.Equal(t, domain.RampTrafficLight, cfg.ColorRamp)
	assert.Equal(t, LocationKafka, cfg.LocationSource)
	assert.InDelta(t, 51.5, cfg.SimCenterLat, 1e-9)
	assert.InDelta(t, -0.12, cfg.SimCenterLon, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.SimInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-locations", cfg.KafkaLocationTopic)
	assert.Equal(t, "custom-samples", cfg.KafkaSampleTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, SinkNATS, cfg.SampleSink)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "custom.samples", cfg.NATSSubject)
	assert.True(t, cfg.RadioEnabled)
	assert.True(t, cfg.RadioAutoconnect)
	assert.Equal(t, "ESP32-Watch", cfg.RadioProfile.DeviceName)
	assert.Equal(t, 20*time.Second, cfg.RadioProfile.ScanTimeout)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"MAPBOX_TIMEOUT", "bad", "MAPBOX_TIMEOUT"},
		{"FEED_TIMEOUT", "0s", "FEED_TIMEOUT"},
		{"FEED_REFRESH_INTERVAL", "-1m", "FEED_REFRESH_INTERVAL"},
		{"SIM_INTERVAL", "soon", "SIM_INTERVAL"},
		{"SIM_CENTER_LAT", "north", "SIM_CENTER_LAT"},
		{"COLOR_RAMP", "rainbow", "COLOR_RAMP"},
		{"LOCATION_SOURCE", "gps", "LOCATION_SOURCE"},
		{"SAMPLE_SINK", "redis", "SAMPLE_SINK"},
		{"RADIO_SCAN_TIMEOUT", "later", "RADIO_SCAN_TIMEOUT"},
		{"RADIO_SERVICE_UUID", "not-a-uuid", "radio profile"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RadioProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: FromFile\nscan_timeout: 15s\n"), 0o600))
	t.Setenv("RADIO_PROFILE_PATH", path)
	t.Setenv("RADIO_SCAN_TIMEOUT", "25s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "FromFile", cfg.RadioProfile.DeviceName)
	assert.Equal(t, 25*time.Second, cfg.RadioProfile.ScanTimeout)
}

func TestLoad_RadioProfileFileMissing(t *testing.T) {
	t.Setenv("RADIO_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RADIO_PROFILE_PATH")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
