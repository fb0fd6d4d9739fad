package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Trip data ingestion.
	DataPaths         []string `envconfig:"DATA_PATHS" default:"data"`
	FileEncodings     []string `envconfig:"FILE_ENCODINGS" default:"utf-8,latin-1"`
	LoadWorkers       int      `envconfig:"LOAD_WORKERS" default:"4"`
	CleaningRulesFile string   `envconfig:"CLEANING_RULES_FILE"`
	TopStations       int      `envconfig:"TOP_STATIONS" default:"10"`

	// Optional publishing of cleaned trips.
	KafkaEnabled     bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic       string   `envconfig:"KAFKA_TOPIC" default:"cleaned-trips"`
	PublishBatchSize int      `envconfig:"PUBLISH_BATCH_SIZE" default:"500"`

	// Mapbox geocoding configuration. MapboxEnabled defaults to whether a
	// token is set; MAPBOX_ENABLED overrides it.
	MapboxToken     string        `envconfig:"MAPBOX_TOKEN"`
	MapboxEnabled   bool          `ignored:"true"`
	MapboxTimeout   time.Duration `envconfig:"MAPBOX_TIMEOUT" default:"5s"`
	MapboxCacheSize int           `envconfig:"MAPBOX_CACHE_SIZE" default:"1000"`
	MapboxRPS       float64       `envconfig:"MAPBOX_RPS" default:"5"`
	StationCity     string        `envconfig:"STATION_CITY" default:"Vancouver, BC"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v, ok := os.LookupEnv("MAPBOX_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAPBOX_ENABLED: %w", err)
		}
		cfg.MapboxEnabled = enabled
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.DataPaths) == 0 {
		return errors.New("DATA_PATHS is required")
	}
	if len(c.FileEncodings) == 0 {
		return errors.New("FILE_ENCODINGS is required")
	}
	if c.LoadWorkers <= 0 {
		return errors.New("LOAD_WORKERS must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.TopStations < 0 {
		return errors.New("TOP_STATIONS must not be negative")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
		if c.PublishBatchSize <= 0 {
			return errors.New("PUBLISH_BATCH_SIZE must be positive")
		}
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("MAPBOX_TIMEOUT must be positive")
	}
	if c.MapboxCacheSize <= 0 {
		return errors.New("MAPBOX_CACHE_SIZE must be positive")
	}
	if c.MapboxRPS <= 0 {
		return errors.New("MAPBOX_RPS must be positive")
	}
	return nil
}
