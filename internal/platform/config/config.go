package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "github.com/riffus/hyperswitch/pkg/platform/strings"
)

// Config gathers the environment knobs for the eligibility stack so
// embedders' wiring stays lean. Every field has a usable default; empty
// backend settings mean "not configured" and the matching component is
// simply not wired.
type Config struct {
	LogLevel string
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Cache    CacheConfig
}

// RedisConfig configures the pub/sub invalidation client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the rule store backend.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the audit sink. An empty topic keeps the sink's
// default.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// CacheConfig bounds the graph cache and names its invalidation channel.
type CacheConfig struct {
	MaxEntries          int
	InvalidationChannel string
}

// FromEnv builds a Config from ELIGIBILITY_* environment variables.
func FromEnv() Config {
	return Config{
		LogLevel: getenv("ELIGIBILITY_LOG_LEVEL", "info"),
		Redis: RedisConfig{
			URL:          os.Getenv("ELIGIBILITY_REDIS_URL"),
			PoolSize:     getint("ELIGIBILITY_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("ELIGIBILITY_REDIS_MIN_IDLE", 2),
			DialTimeout:  getduration("ELIGIBILITY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("ELIGIBILITY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("ELIGIBILITY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("ELIGIBILITY_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:    getlist("ELIGIBILITY_KAFKA_BROKERS"),
			AuditTopic: os.Getenv("ELIGIBILITY_AUDIT_TOPIC"),
		},
		Cache: CacheConfig{
			MaxEntries:          getint("ELIGIBILITY_CACHE_MAX_ENTRIES", 0),
			InvalidationChannel: os.Getenv("ELIGIBILITY_INVALIDATION_CHANNEL"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
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

func getduration(key string, fallback time.Duration) time.Duration {
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

func getlist(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := platformstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
