// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres captures the database connection settings.
type Postgres struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis captures the cache connection settings. An empty URL disables the
// cache; callers must tolerate a nil client.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit event pipeline settings.
type Kafka struct {
	Brokers       []string
	AuditTopic    string
	ConsumerGroup string
}

// Auth captures token signing settings.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
}

// Core captures the ledger's fixed accounts and lending defaults. Basis
// points throughout: 10000 = 100%.
type Core struct {
	Steward           string
	VaultAccount      string
	LendingAccount    string
	DefaultMaxLTV     int64
	DefaultAnnualRate int64
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	Core     Core
}

// FromEnv reads configuration from CLEARLEDGER_* environment variables,
// falling back to development defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            envStr("CLEARLEDGER_ADDR", ":8080"),
			ShutdownTimeout: envDur("CLEARLEDGER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:          envStr("CLEARLEDGER_POSTGRES_DSN", ""),
			MaxOpenConns: envInt("CLEARLEDGER_POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("CLEARLEDGER_POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Redis: Redis{
			URL:          envStr("CLEARLEDGER_REDIS_URL", ""),
			PoolSize:     envInt("CLEARLEDGER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CLEARLEDGER_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDur("CLEARLEDGER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDur("CLEARLEDGER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDur("CLEARLEDGER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       envList("CLEARLEDGER_KAFKA_BROKERS"),
			AuditTopic:    envStr("CLEARLEDGER_KAFKA_AUDIT_TOPIC", "clearledger.audit"),
			ConsumerGroup: envStr("CLEARLEDGER_KAFKA_CONSUMER_GROUP", "clearledger-indexer"),
		},
		Auth: Auth{
			JWTSigningKey: envStr("CLEARLEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envStr("CLEARLEDGER_JWT_ISSUER", "clearledger"),
			Audience:      envStr("CLEARLEDGER_JWT_AUDIENCE", "clearledger-api"),
			TokenTTL:      envDur("CLEARLEDGER_JWT_TTL", time.Hour),
		},
		Core: Core{
			Steward:           envStr("CLEARLEDGER_STEWARD_ACCOUNT", "steward"),
			VaultAccount:      envStr("CLEARLEDGER_VAULT_ACCOUNT", "system:vault"),
			LendingAccount:    envStr("CLEARLEDGER_LENDING_ACCOUNT", "system:lending"),
			DefaultMaxLTV:     envInt64("CLEARLEDGER_DEFAULT_MAX_LTV", 7500),
			DefaultAnnualRate: envInt64("CLEARLEDGER_DEFAULT_ANNUAL_RATE", 500),
		},
	}
	if cfg.Core.VaultAccount == cfg.Core.LendingAccount {
		return Config{}, fmt.Errorf("vault and lending accounts must differ: %q", cfg.Core.VaultAccount)
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
