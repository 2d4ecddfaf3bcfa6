package kafka

import (
	"context"

	"github.com/smallbiznis/nbaflow/internal/config"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("intake.kafka",
	fx.Invoke(runConsumer),
)

func runConsumer(lc fx.Lifecycle, cfg config.Config, intake intakedomain.Service, log *zap.Logger) {
	if !cfg.Kafka.Enabled {
		return
	}
	startConsumer(lc, func() *Consumer {
		return NewConsumer(NewReader(cfg.Kafka), intake, cfg.Kafka.Topic, log)
	}, log)
}

func startConsumer(lc fx.Lifecycle, build func() *Consumer, log *zap.Logger) {
	var (
		consumer *Consumer
		cancel   context.CancelFunc
		done     chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			consumer = build()
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})

			go func() {
				defer close(done)
				if err := consumer.Start(ctx); err != nil {
					log.Error("kafka consumer stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			if consumer == nil {
				return nil
			}
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return consumer.Close()
		},
	})
}
