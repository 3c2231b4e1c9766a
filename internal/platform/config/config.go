// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strings"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string

	// Registry credentials and environment.
	Mode            string // "sandbox" or "live"
	BaseURL         string // overrides the mode's default when set
	TokenURL        string
	ClientID        string
	ClientSecret    string
	AccountNumber   string
	DefaultContract string
	// WrapperKey names the JSON key wrapping the product array in batch
	// submissions. Provider-versioned; the default matches the current API.
	WrapperKey string

	// Persistence and infrastructure. Empty values select the in-memory
	// fallbacks, which suit development and tests.
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	AuditTopic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("GTIND_ADDR", ":8080"),
		Mode:            envOr("GTIND_API_MODE", "sandbox"),
		BaseURL:         os.Getenv("GTIND_API_BASE_URL"),
		TokenURL:        os.Getenv("GTIND_API_TOKEN_URL"),
		ClientID:        os.Getenv("GTIND_API_CLIENT_ID"),
		ClientSecret:    os.Getenv("GTIND_API_CLIENT_SECRET"),
		AccountNumber:   os.Getenv("GTIND_ACCOUNT_NUMBER"),
		DefaultContract: os.Getenv("GTIND_DEFAULT_CONTRACT"),
		WrapperKey:      os.Getenv("GTIND_WRAPPER_KEY"),
		PostgresDSN:     os.Getenv("GTIND_POSTGRES_DSN"),
		RedisURL:        os.Getenv("GTIND_REDIS_URL"),
		AuditTopic:      envOr("GTIND_AUDIT_TOPIC", "gtind.audit"),
	}
	if brokers := os.Getenv("GTIND_KAFKA_BROKERS"); brokers != "" {
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
