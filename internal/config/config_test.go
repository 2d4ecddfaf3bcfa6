package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "25")
	t.Setenv("PROCESSED_EVENT_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092,,")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("DIRECTORY_DB_TYPE", "SQLITE")

	cfg := Load()

	assert.Equal(t, 25, cfg.QueueCapacity)
	assert.Equal(t, 90*time.Minute, cfg.ProcessedEventTTL)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "sqlite", cfg.Directory.DBType)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "lots")
	t.Setenv("PROCESSED_EVENT_TTL", "-5s")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, 24*time.Hour, cfg.ProcessedEventTTL)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadObservabilityLeavesDefaultsToResolver(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")

	cfg := Load()

	assert.Empty(t, cfg.Observability.LogLevel)
	assert.Equal(t, -1.0, cfg.Observability.OtelSamplingRatio)
	assert.Equal(t, "http", cfg.Observability.OtelProtocol)
}
