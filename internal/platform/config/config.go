// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string
	LogFormat string
	LogLevel  string
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client shared by the catalog cache and the job queue.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox publisher and the catalog notification consumer.
type KafkaConfig struct {
	Brokers            []string
	CaseEventsTopic    string
	CatalogTopic       string
	ConsumerGroup      string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// CatalogConfig configures the catalog HTTP client.
type CatalogConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	CacheTTL     time.Duration
	// File serves case types from YAML when BaseURL is empty.
	File string
}

// CollaboratorsConfig points at the task service and decision registry.
// An empty URL selects the local fallback.
type CollaboratorsConfig struct {
	TasksBaseURL     string
	DecisionsBaseURL string
}

// AuthConfig configures employee authentication and the shared secrets of
// the administrator routes and the catalog webhook.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminGroup    string
	AdminToken    string
	WebhookToken  string
}

// InstructionsConfig configures the follow-up instruction queue.
type InstructionsConfig struct {
	Queue       string
	Concurrency int
	MaxRetry    int
}

// RateLimitConfig bounds mutating requests per actor in a sliding window.
type RateLimitConfig struct {
	Disabled  bool
	Mutations int
	Webhook   int
	Window    time.Duration
}

// Config is the full process configuration.
type Config struct {
	Server        Server
	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Catalog       CatalogConfig
	Collaborators CollaboratorsConfig
	Auth          AuthConfig
	Instructions  InstructionsConfig
	RateLimit     RateLimitConfig
	ReconcileSpec string
}

// Load reads a .env file when present and builds the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: Server{
			Addr:      getEnv("ZAC_ADDR", ":8080"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
			LogLevel:  getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:            splitCSV(getEnv("KAFKA_BROKERS", "")),
			CaseEventsTopic:    getEnv("KAFKA_CASE_EVENTS_TOPIC", "zaak.events"),
			CatalogTopic:       getEnv("KAFKA_CATALOG_TOPIC", "catalog.casetype.published"),
			ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "zac"),
			OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			OutboxBatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Catalog: CatalogConfig{
			BaseURL:      getEnv("CATALOG_BASE_URL", ""),
			ClientID:     getEnv("CATALOG_CLIENT_ID", "zac"),
			ClientSecret: getEnv("CATALOG_CLIENT_SECRET", ""),
			Timeout:      getDuration("CATALOG_TIMEOUT", 10*time.Second),
			CacheTTL:     getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			File:         getEnv("CATALOG_FILE", ""),
		},
		Collaborators: CollaboratorsConfig{
			TasksBaseURL:     getEnv("TASKS_BASE_URL", ""),
			DecisionsBaseURL: getEnv("DECISIONS_BASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSigningKey: getEnv("AUTH_JWT_SIGNING_KEY", ""),
			JWTIssuer:     getEnv("AUTH_JWT_ISSUER", ""),
			JWTAudience:   getEnv("AUTH_JWT_AUDIENCE", "zac"),
			AdminGroup:    getEnv("AUTH_ADMIN_GROUP", "zac-beheerders"),
			AdminToken:    getEnv("ADMIN_TOKEN", ""),
			WebhookToken:  getEnv("CATALOG_WEBHOOK_TOKEN", ""),
		},
		Instructions: InstructionsConfig{
			Queue:       getEnv("INSTRUCTIONS_QUEUE", "zaak-instructions"),
			Concurrency: getInt("INSTRUCTIONS_CONCURRENCY", 10),
			MaxRetry:    getInt("INSTRUCTIONS_MAX_RETRY", 8),
		},
		RateLimit: RateLimitConfig{
			Disabled:  getBool("RATE_LIMIT_DISABLED", false),
			Mutations: getInt("RATE_LIMIT_MUTATIONS", 120),
			Webhook:   getInt("RATE_LIMIT_WEBHOOK", 600),
			Window:    getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ReconcileSpec: getEnv("CONFIG_RECONCILE_SPEC", "@every 1h"),
	}

	if cfg.Catalog.BaseURL != "" && cfg.Catalog.ClientSecret == "" {
		return nil, fmt.Errorf("CATALOG_CLIENT_SECRET is required when CATALOG_BASE_URL is set")
	}
	usesZGW := cfg.Collaborators.TasksBaseURL != "" || cfg.Collaborators.DecisionsBaseURL != ""
	if usesZGW && cfg.Catalog.ClientSecret == "" {
		return nil, fmt.Errorf("CATALOG_CLIENT_SECRET is required to call the task or decision APIs")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
