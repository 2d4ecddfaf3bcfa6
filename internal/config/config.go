package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	SnowflakeNode int64

	QueueCapacity     int
	QueueDrainOnStop  bool
	ProcessedEventTTL time.Duration

	PriorityConfigPath string

	Directory     DirectoryConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ObservabilityConfig carries the raw logging and tracing settings. Empty
// values and a negative sampling ratio mean "use the environment default".
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64
}

// DirectoryConfig points at the read-only client database used for enrichment.
type DirectoryConfig struct {
	Enabled  bool
	DBType   string
	Path     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	CacheTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled     bool
	SourceRate  float64
	SourceBurst int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "nbaflow"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		SnowflakeNode:      getenvInt64("SNOWFLAKE_NODE", 1),
		QueueCapacity:      int(getenvInt64("QUEUE_CAPACITY", 1000)),
		QueueDrainOnStop:   getenvBool("QUEUE_DRAIN_ON_STOP", false),
		ProcessedEventTTL:  getenvDuration("PROCESSED_EVENT_TTL", 24*time.Hour),
		PriorityConfigPath: strings.TrimSpace(getenv("NBA_CONFIG_PATH", "")),
		Directory: DirectoryConfig{
			Enabled:  getenvBool("DIRECTORY_ENABLED", true),
			DBType:   strings.ToLower(getenv("DIRECTORY_DB_TYPE", "sqlite")),
			Path:     getenv("DIRECTORY_DB_PATH", "mock_db.sqlite3"),
			Host:     getenv("DIRECTORY_DB_HOST", "localhost"),
			Port:     getenv("DIRECTORY_DB_PORT", "5432"),
			Name:     getenv("DIRECTORY_DB_NAME", "postgres"),
			User:     getenv("DIRECTORY_DB_USER", "postgres"),
			Password: getenv("DIRECTORY_DB_PASSWORD", ""),
			SSLMode:  getenv("DIRECTORY_DB_SSLMODE", "disable"),
			CacheTTL: getenvDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			SourceRate:  getenvFloat("RATE_LIMIT_SOURCE_RATE", 50),
			SourceBurst: int(getenvInt64("RATE_LIMIT_SOURCE_BURST", 100)),
		},
		Kafka: KafkaConfig{
			Enabled: getenvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "nba.calculation-events"),
			GroupID: getenv("KAFKA_GROUP_ID", "nbaflow"),
		},
		Observability: ObservabilityConfig{
			LogLevel:          strings.TrimSpace(getenv("LOG_LEVEL", "")),
			LogFormat:         strings.TrimSpace(getenv("LOG_FORMAT", "")),
			OtelEnabled:       getenvBool("OTEL_ENABLED", false),
			OtelProtocol:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", -1),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
