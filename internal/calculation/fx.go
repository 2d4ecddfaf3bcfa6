package calculation

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
	"github.com/smallbiznis/nbaflow/internal/calculation/liveoutcomes"
	"github.com/smallbiznis/nbaflow/internal/calculation/processed"
	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/config"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("calculation",
	fx.Provide(provideConfig),
	fx.Provide(provideProcessedStore),
	fx.Provide(liveoutcomes.NewHub),
	fx.Provide(func(h *config.PriorityHolder) PriorityResolver { return h }),
	fx.Provide(NewProcessor),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func provideConfig(cfg config.Config) Config {
	return Config{
		ProcessedEventTTL: cfg.ProcessedEventTTL,
		DrainOnStop:       cfg.QueueDrainOnStop,
	}.withDefaults()
}

type processedStoreParams struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Config Config
	Redis  *redis.Client `optional:"true"`
}

func provideProcessedStore(p processedStoreParams) calcdomain.ProcessedStore {
	if p.Redis != nil {
		p.Log.Info("processed event store", zap.String("backend", "redis"))
		return processed.NewRedisStore(p.Redis, "", p.Config.ProcessedEventTTL)
	}
	p.Log.Info("processed event store", zap.String("backend", "memory"))
	return processed.NewMemoryStore(p.Config.ProcessedEventTTL, p.Clock)
}

func runWorker(lc fx.Lifecycle, worker *Worker, q *queue.Queue, log *zap.Logger, pipeline *metrics.PipelineMetrics) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})

			go func() {
				defer close(done)
				worker.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			if cancel != nil {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
				}
			}

			if worker.cfg.DrainOnStop {
				drained := worker.Drain(stopCtx)
				log.Info("queue.drained", zap.Int("count", len(drained)))
			}

			discarded := q.Close()
			pipeline.AddDiscarded(discarded)
			log.Info("queue.discarded", zap.Int("count", discarded))
			return nil
		},
	})
}
