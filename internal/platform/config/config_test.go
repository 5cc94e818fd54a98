package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "catalog.casetype.published", cfg.Kafka.CatalogTopic)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, "@every 1h", cfg.ReconcileSpec)
	assert.Equal(t, "zac", cfg.Auth.JWTAudience)
	assert.Empty(t, cfg.Collaborators.TasksBaseURL)
	assert.Equal(t, 120, cfg.RateLimit.Mutations)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092")
	t.Setenv("INSTRUCTIONS_CONCURRENCY", "4")
	t.Setenv("CATALOG_CACHE_TTL", "30s")
	t.Setenv("CATALOG_BASE_URL", "")
	t.Setenv("RATE_LIMIT_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Instructions.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Catalog.CacheTTL)
	assert.True(t, cfg.RateLimit.Disabled)
}

func TestLoad_CatalogRequiresSecret(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "https://catalog.example")
	t.Setenv("CATALOG_CLIENT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "many")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	t.Setenv("CATALOG_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Kafka.OutboxBatchSize)
	assert.Equal(t, time.Second, cfg.Kafka.OutboxPollInterval)
}

func TestLoad_CollaboratorsRequireSecret(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "")
	t.Setenv("CATALOG_CLIENT_SECRET", "")
	t.Setenv("TASKS_BASE_URL", "https://tasks.example")

	_, err := Load()
	assert.ErrorContains(t, err, "task or decision")
}
