package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/radio"
	"github.com/joho/godotenv"
)

// Location source and sample sink kinds.
const (
	LocationSim   = "sim"
	LocationKafka = "kafka"

	SinkNone  = "none"
	SinkKafka = "kafka"
	SinkNATS  = "nats"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Point feed.
	FeedSource          string
	FeedTimeout         time.Duration
	FeedRefreshInterval time.Duration
	ColorRamp           domain.Ramp

	// Location source.
	LocationSource string
	SimCenterLat   float64
	SimCenterLon   float64
	SimInterval    time.Duration

	KafkaBrokers       []string
	KafkaLocationTopic string
	KafkaSampleTopic   string
	KafkaGroupID       string

	// Sample sink.
	SampleSink  string
	NATSURL     string
	NATSSubject string

	// Wearable radio.
	RadioEnabled     bool
	RadioAutoconnect bool
	RadioProfile     radio.Profile

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	simInterval, err := parsePositiveDuration("SIM_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	refresh, err := time.ParseDuration(sharedcfg.EnvOrDefault("FEED_REFRESH_INTERVAL", "0s"))
	if err != nil || refresh < 0 {
		return nil, errors.New("invalid FEED_REFRESH_INTERVAL")
	}

	ramp, err := domain.ParseRamp(os.Getenv("COLOR_RAMP"))
	if err != nil {
		return nil, fmt.Errorf("invalid COLOR_RAMP: %w", err)
	}

	simLat, err := parseFloat("SIM_CENTER_LAT", "40.7128")
	if err != nil {
		return nil, err
	}
	simLon, err := parseFloat("SIM_CENTER_LON", "-74.0060")
	if err != nil {
		return nil, err
	}

	profile, err := loadRadioProfile()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedSource:          sharedcfg.EnvOrDefault("FEED_SOURCE", "data.csv"),
		FeedTimeout:         feedTimeout,
		FeedRefreshInterval: refresh,
		ColorRamp:           ramp,

		LocationSource: sharedcfg.EnvOrDefault("LOCATION_SOURCE", LocationSim),
		SimCenterLat:   simLat,
		SimCenterLon:   simLon,
		SimInterval:    simInterval,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLocationTopic: sharedcfg.EnvOrDefault("KAFKA_LOCATION_TOPIC", "wearable-locations"),
		KafkaSampleTopic:   sharedcfg.EnvOrDefault("KAFKA_SAMPLE_TOPIC", "wearable-samples"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "watchlink"),

		SampleSink:  sharedcfg.EnvOrDefault("SAMPLE_SINK", SinkNone),
		NATSURL:     sharedcfg.EnvOrDefault("NATS_URL", "nats://localhost:4222"),
		NATSSubject: sharedcfg.EnvOrDefault("NATS_SUBJECT", "watchlink.samples"),

		RadioEnabled:     os.Getenv("RADIO_ENABLED") == "true",
		RadioAutoconnect: os.Getenv("RADIO_AUTOCONNECT") == "true",
		RadioProfile:     profile,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.FeedSource == "" {
		return nil, errors.New("FEED_SOURCE is required")
	}
	switch cfg.LocationSource {
	case LocationSim:
	case LocationKafka:
		if cfg.KafkaLocationTopic == "" {
			return nil, errors.New("KAFKA_LOCATION_TOPIC is required")
		}
	default:
		return nil, fmt.Errorf("invalid LOCATION_SOURCE %q", cfg.LocationSource)
	}
	switch cfg.SampleSink {
	case SinkNone, SinkNATS:
	case SinkKafka:
		if cfg.KafkaSampleTopic == "" {
			return nil, errors.New("KAFKA_SAMPLE_TOPIC is required")
		}
	default:
		return nil, fmt.Errorf("invalid SAMPLE_SINK %q", cfg.SampleSink)
	}
	if (cfg.LocationSource == LocationKafka || cfg.SampleSink == SinkKafka) && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// loadRadioProfile starts from firmware defaults, overlays RADIO_PROFILE_PATH
// and then the individual RADIO_* variables.
func loadRadioProfile() (radio.Profile, error) {
	p := radio.DefaultProfile()
	if path := os.Getenv("RADIO_PROFILE_PATH"); path != "" {
		loaded, err := radio.LoadProfile(path, p)
		if err != nil {
			return radio.Profile{}, fmt.Errorf("invalid RADIO_PROFILE_PATH: %w", err)
		}
		p = loaded
	}

	if v := os.Getenv("RADIO_DEVICE_NAME"); v != "" {
		p.DeviceName = v
	}
	if v := os.Getenv("RADIO_SERVICE_UUID"); v != "" {
		p.ServiceUUID = v
	}
	if v := os.Getenv("RADIO_CHARACTERISTIC_UUID"); v != "" {
		p.CharacteristicUUID = v
	}
	if v := os.Getenv("RADIO_SCAN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return radio.Profile{}, errors.New("invalid RADIO_SCAN_TIMEOUT")
		}
		p.ScanTimeout = d
	}

	if err := p.Validate(); err != nil {
		return radio.Profile{}, fmt.Errorf("invalid radio profile: %w", err)
	}
	return p, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
