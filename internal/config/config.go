package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Override store backends.
const (
	BackendDictionary = "dictionary"
	BackendRedis      = "redis"
	BackendMemory     = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Edge environment.
	CurrentPOP     string
	ServiceVersion string

	// Upstream APIs. FastlyAPIToken is injected at startup and must never be logged.
	FastlyAPIURL    string
	FastlyAPIToken  string
	StatusFeedURL   string
	UpstreamTimeout time.Duration

	// Override store.
	OverrideBackend    string
	OverrideKey        string
	FastlyServiceID    string
	FastlyDictionaryID string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Override change events. Empty KafkaBrokers disables publishing.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("UPSTREAM_TIMEOUT", "5s"))
	if err != nil || upstreamTimeout <= 0 {
		return nil, errors.New("invalid UPSTREAM_TIMEOUT")
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CurrentPOP:     os.Getenv("FASTLY_POP"),
		ServiceVersion: os.Getenv("FASTLY_SERVICE_VERSION"),

		FastlyAPIURL:    strings.TrimRight(sharedcfg.EnvOrDefault("FASTLY_API_URL", "https://api.fastly.com"), "/"),
		FastlyAPIToken:  os.Getenv("FASTLY_API_TOKEN"),
		StatusFeedURL:   sharedcfg.EnvOrDefault("STATUS_FEED_URL", "https://service-scraper.edgecompute.app/"),
		UpstreamTimeout: upstreamTimeout,

		OverrideBackend:    strings.ToLower(sharedcfg.EnvOrDefault("OVERRIDE_BACKEND", BackendDictionary)),
		OverrideKey:        sharedcfg.EnvOrDefault("OVERRIDE_KEY", "modified_pop_status"),
		FastlyServiceID:    os.Getenv("FASTLY_SERVICE_ID"),
		FastlyDictionaryID: os.Getenv("FASTLY_DICTIONARY_ID"),
		RedisAddr:          sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pop-override-events"),
	}

	if cfg.FastlyAPIToken == "" {
		return nil, errors.New("FASTLY_API_TOKEN is required")
	}
	if cfg.OverrideKey == "" {
		return nil, errors.New("OVERRIDE_KEY is required")
	}

	switch cfg.OverrideBackend {
	case BackendDictionary:
		if cfg.FastlyServiceID == "" || cfg.FastlyDictionaryID == "" {
			return nil, errors.New("OVERRIDE_BACKEND=dictionary requires FASTLY_SERVICE_ID and FASTLY_DICTIONARY_ID")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("OVERRIDE_BACKEND=redis requires REDIS_ADDR")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown OVERRIDE_BACKEND %q", cfg.OverrideBackend)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// EventsEnabled reports whether override changes should be published to Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
