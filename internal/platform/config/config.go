package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean;
// features receive only the slices they need.
type Config struct {
	Addr string

	// Content store gateways, primary first. At least one is required; the
	// client falls back through the rest in order.
	GatewayURLs []string

	// RedisURL selects the Redis-backed stores when set; empty means the
	// in-memory stores (single-instance deployments, tests).
	RedisURL string

	// PostgresDSN selects the Postgres decision/grant stores when set.
	PostgresDSN string

	// KafkaBrokers enables the audit event publisher when non-empty.
	KafkaBrokers []string

	JWTSigningKey string

	LogLevel string

	SessionTTL time.Duration
	GrantTTL   time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("CANGUARD_ADDR", ":8080"),
		RedisURL:      os.Getenv("CANGUARD_REDIS_URL"),
		PostgresDSN:   os.Getenv("CANGUARD_POSTGRES_DSN"),
		JWTSigningKey: envOr("CANGUARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LogLevel:      envOr("CANGUARD_LOG_LEVEL", "info"),
		SessionTTL:    durationOr("CANGUARD_SESSION_TTL", 30*time.Minute),
		GrantTTL:      durationOr("CANGUARD_GRANT_TTL", 15*time.Minute),
	}

	gateways := envOr("CANGUARD_GATEWAY_URLS", "http://localhost:8081")
	for _, u := range strings.Split(gateways, ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.GatewayURLs = append(cfg.GatewayURLs, u)
		}
	}

	if brokers := os.Getenv("CANGUARD_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
