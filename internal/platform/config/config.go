// Package config builds process configuration from the environment so main
// stays lean. Defaults favor local development; production overrides every
// secret-bearing value.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	CheckIn  CheckInConfig
	Audit    AuditConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// PostgresConfig holds the relational store connection settings.
// Empty DSN means postgres is not configured and memory stores are used.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds connection settings for the recent-scans feed and the
// device token revocation store. Empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker settings for the audit relay.
// Empty Brokers means the relay and consumer are disabled.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	GroupID    string
}

// AuthConfig holds transport authentication settings.
type AuthConfig struct {
	AdminToken      string
	DeviceJWTSecret string
	DeviceTokenTTL  time.Duration
	DeviceBindingOn bool
}

// CheckInConfig tunes the scan path.
type CheckInConfig struct {
	// Grace extends the check-in window past the event's end time.
	Grace time.Duration
	// FeedSize caps the recent-scans feed.
	FeedSize int
	// ScanLimit bounds scans per device over ScanWindow.
	ScanLimit  int
	ScanWindow time.Duration
}

// AuditConfig tunes audit event publishing and outbox relay.
type AuditConfig struct {
	AsyncBuffer   int
	RelayInterval time.Duration
	RelayBatch    int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getEnv("TURNSTILE_ADDR", ":8080"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("AUDIT_TOPIC", "turnstile.audit"),
			GroupID:    getEnv("AUDIT_CONSUMER_GROUP", "turnstile-audit"),
		},
		Auth: AuthConfig{
			AdminToken: getEnv("ADMIN_TOKEN", "dev-admin-token-change-in-production"),
			// Development default - must be overridden in production
			DeviceJWTSecret: getEnv("DEVICE_JWT_SECRET", "dev-secret-key-change-in-production"),
			DeviceTokenTTL:  getEnvDuration("DEVICE_TOKEN_TTL", 12*time.Hour),
			DeviceBindingOn: getEnvBool("DEVICE_BINDING_ENABLED", true),
		},
		CheckIn: CheckInConfig{
			Grace:          getEnvDuration("CHECKIN_GRACE", 2*time.Hour),
			FeedSize:       getEnvInt("RECENT_FEED_SIZE", 10),
			ScanLimit:  getEnvInt("SCAN_RATE_LIMIT", 120),
			ScanWindow: getEnvDuration("SCAN_RATE_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			AsyncBuffer:   getEnvInt("AUDIT_ASYNC_BUFFER", 256),
			RelayInterval: getEnvDuration("AUDIT_RELAY_INTERVAL", time.Second),
			RelayBatch:    getEnvInt("AUDIT_RELAY_BATCH", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
