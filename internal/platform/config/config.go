package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the engine reads from the environment so main
// stays lean. Backing services are optional: an empty DSN/URL selects the
// in-memory implementation of the corresponding store.
type Config struct {
	Addr          string
	JWTSigningKey string

	PostgresDSN string
	Redis       RedisConfig
	KafkaSeeds  []string

	// FuzzyMatch enables the edit-distance matching tier. Off by default;
	// it is the first thing shed under load.
	FuzzyMatch bool

	// QueryTimeout bounds spatial queries and matcher scans.
	QueryTimeout time.Duration

	// SweepInterval drives the reconciliation worker that retries pending
	// matches and re-offers undelivered notifications.
	SweepInterval time.Duration

	// DeliveryWindow is how long an unread notification stays eligible for
	// delivery re-offers.
	DeliveryWindow time.Duration
}

// RedisConfig captures go-redis client tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("RECLAIM_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("RECLAIM_JWT_SIGNING_KEY"),
		PostgresDSN:   os.Getenv("RECLAIM_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("RECLAIM_REDIS_URL"),
			PoolSize:     envInt("RECLAIM_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("RECLAIM_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("RECLAIM_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("RECLAIM_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("RECLAIM_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		FuzzyMatch:     os.Getenv("RECLAIM_FUZZY_MATCH") == "true",
		QueryTimeout:   envDuration("RECLAIM_QUERY_TIMEOUT", 5*time.Second),
		SweepInterval:  envDuration("RECLAIM_SWEEP_INTERVAL", time.Minute),
		DeliveryWindow: envDuration("RECLAIM_DELIVERY_WINDOW", 24*time.Hour),
	}
	if seeds := os.Getenv("RECLAIM_KAFKA_SEEDS"); seeds != "" {
		cfg.KafkaSeeds = splitSeeds(seeds)
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitSeeds(s string) []string {
	var out []string
	for _, seed := range strings.Split(s, ",") {
		if seed = strings.TrimSpace(seed); seed != "" {
			out = append(out, seed)
		}
	}
	return out
}
