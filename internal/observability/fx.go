package observability

import (
	"github.com/smallbiznis/nbaflow/internal/observability/logger"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/observability/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.PipelineWithConfig,
	),
	fx.Invoke(ensureTracingProvider, logStartup),
)

func ensureTracingProvider(_ trace.TracerProvider) {}

func logStartup(cfg Config, log *zap.Logger) {
	fields := []zap.Field{
		zap.String("environment", cfg.Environment),
		zap.String("version", cfg.Version),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("tracing", cfg.OtelEnabled),
		zap.Float64("sampling_ratio", cfg.OtelSamplingRatio),
		zap.Int("queue_capacity", cfg.QueueCapacity),
	}
	if cfg.KafkaTopic != "" {
		fields = append(fields, zap.String("kafka_topic", cfg.KafkaTopic))
	}
	log.Info("nbaflow.starting", fields...)
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
