package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// FIRMS provider.
	MapKey  string
	BaseURL string
	Source  string
	BBox    domain.BBox
	Days    int
	Timeout time.Duration

	// Retrieval cache.
	RefreshWindow   time.Duration
	CacheMaxEntries int
	Location        *time.Location

	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
	RefreshRateLimit   int

	// Optional Kafka sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	bbox, err := domain.ParseBBox(sharedcfg.EnvOrDefault("FIRMS_BBOX", "11.8,35.4,15.7,39.0"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRMS_BBOX: %w", err)
	}

	days, err := parsePositiveInt("FIRMS_DAYS", 3)
	if err != nil {
		return nil, err
	}
	if days < domain.MinDays || days > domain.MaxDays {
		return nil, fmt.Errorf("invalid FIRMS_DAYS: must be between %d and %d", domain.MinDays, domain.MaxDays)
	}

	timeout, err := parseDuration("FIRMS_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	refreshWindow, err := parseDuration("CACHE_REFRESH_WINDOW", "30m")
	if err != nil {
		return nil, err
	}
	breakerOpen, err := parseDuration("BREAKER_OPEN_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	maxEntries, err := parsePositiveInt("CACHE_MAX_ENTRIES", 64)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := parsePositiveInt("BREAKER_FAILURES", 5)
	if err != nil {
		return nil, err
	}
	rateLimit, err := parsePositiveInt("REFRESH_RATE_LIMIT", 6)
	if err != nil {
		return nil, err
	}

	zone := sharedcfg.EnvOrDefault("LOCAL_TIMEZONE", domain.DefaultLocalZone)
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TIMEZONE: %w", err)
	}

	cfg := &Config{
		MapKey:  os.Getenv("FIRMS_MAP_KEY"),
		BaseURL: sharedcfg.EnvOrDefault("FIRMS_BASE_URL", "https://firms.modaps.eosdis.nasa.gov/api/area/csv"),
		Source:  sharedcfg.EnvOrDefault("FIRMS_SOURCE", "VIIRS_NOAA20_NRT"),
		BBox:    bbox,
		Days:    days,
		Timeout: timeout,

		RefreshWindow:   refreshWindow,
		CacheMaxEntries: maxEntries,
		Location:        loc,

		BreakerFailures:    uint32(breakerFailures),
		BreakerOpenTimeout: breakerOpen,
		RefreshRateLimit:   rateLimit,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "firms-hotspots"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.MapKey == "" {
		return nil, errors.New("FIRMS_MAP_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

// Query returns the provider query for the given day window; zero means the
// configured default.
func (c *Config) Query(days int) domain.Query {
	if days == 0 {
		days = c.Days
	}
	return domain.Query{BBox: c.BBox, Days: days, Source: c.Source}
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}
