package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	LogLevel    string
	RedisAddr   string
	DatabaseURL string

	// ContentTTL intentionally sits below TileIndexTTL: index entries
	// outliving their content is the historical behavior, and the
	// resolution layer treats the resulting index-hit/content-miss as a
	// plain miss. Both stay independently configurable.
	ContentTTL     time.Duration
	TileIndexTTL   time.Duration
	ContentLRUSize int

	CacheOpTimeout time.Duration

	ThrottleBaseDelay time.Duration
	ThrottleMaxDelay  time.Duration
}

func FromEnv() Config {
	return Config{
		Addr:        getenv("ADDR", ":8090"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		DatabaseURL: getenv("DATABASE_URL", "postgres://localhost:5432/gridlines?sslmode=disable"),

		ContentTTL:     getduration("CONTENT_TTL", 300*time.Second),
		TileIndexTTL:   getduration("TILE_INDEX_TTL", 3600*time.Second),
		ContentLRUSize: getint("CONTENT_LRU_SIZE", 128),

		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		ThrottleBaseDelay: getduration("THROTTLE_BASE_DELAY", 100*time.Millisecond),
		ThrottleMaxDelay:  getduration("THROTTLE_MAX_DELAY", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
