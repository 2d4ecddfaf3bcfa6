package observability

import (
	"strings"

	"github.com/smallbiznis/nbaflow/internal/config"
)

const (
	defaultServiceName = "nbaflow"

	devSamplingRatio  = 1.0
	prodSamplingRatio = 0.1
)

// Config is the resolved logging and tracing setup for the pipeline process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	// QueueCapacity and KafkaTopic are stamped on the startup log so an
	// operator can tell which intake shape a process runs with.
	QueueCapacity int
	KafkaTopic    string
}

// LoadConfig resolves observability settings from the application config.
// Development environments get debug logs, console output and full trace
// sampling unless overridden.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	environment := strings.TrimSpace(cfg.Environment)
	dev := isDevEnv(environment)
	obs := cfg.Observability

	out := Config{
		ServiceName:          serviceName,
		Environment:          environment,
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             normalizeLevel(obs.LogLevel, dev),
		LogFormat:            normalizeFormat(obs.LogFormat, dev),
		OtelEnabled:          obs.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: normalizeProtocol(obs.OtelProtocol),
		OtelSamplingRatio:    samplingRatio(obs.OtelSamplingRatio, dev),
		QueueCapacity:        cfg.QueueCapacity,
	}
	if cfg.Kafka.Enabled {
		out.KafkaTopic = strings.TrimSpace(cfg.Kafka.Topic)
	}
	return out
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func normalizeLevel(level string, dev bool) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "debug", "info", "warn", "error":
		return l
	case "warning":
		return "warn"
	case "":
		if dev {
			return "debug"
		}
		return "info"
	default:
		return "info"
	}
}

func normalizeFormat(format string, dev bool) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "json", "console":
		return f
	default:
		if dev {
			return "console"
		}
		return "json"
	}
}

// normalizeProtocol folds the OTLP protocol aliases onto grpc or http.
// Unknown values pass through so the exporter reports them at startup.
func normalizeProtocol(protocol string) string {
	switch p := strings.ToLower(strings.TrimSpace(protocol)); p {
	case "", "grpc", "grpc/protobuf":
		return "grpc"
	case "http", "http/protobuf":
		return "http"
	default:
		return p
	}
}

func samplingRatio(ratio float64, dev bool) float64 {
	switch {
	case ratio < 0:
		if dev {
			return devSamplingRatio
		}
		return prodSamplingRatio
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
