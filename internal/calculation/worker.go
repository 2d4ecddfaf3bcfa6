package calculation

import (
	"context"
	"errors"

	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WorkerParams struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Consumer  queue.Consumer
	Processor *Processor
	Pipeline  *metrics.PipelineMetrics `optional:"true"`
	Config    Config                   `optional:"true"`
}

// Worker is the single consumer of the event queue. Events are processed
// strictly one at a time in queue order.
type Worker struct {
	log       *zap.Logger
	clock     clock.Clock
	consumer  queue.Consumer
	processor *Processor
	pipeline  *metrics.PipelineMetrics
	cfg       Config
}

func NewWorker(p WorkerParams) *Worker {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		log:       log.Named("calculation.worker"),
		clock:     p.Clock,
		consumer:  p.Consumer,
		processor: p.Processor,
		pipeline:  p.Pipeline,
		cfg:       p.Config.withDefaults(),
	}
}

// RunForever consumes until ctx is cancelled or the queue is closed.
func (w *Worker) RunForever(ctx context.Context) {
	w.log.Info("calculation worker started")
	defer w.log.Info("calculation worker stopped")

	for {
		env, err := w.consumer.Consume(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			w.log.Warn("queue consume failed", zap.Error(err))
			continue
		}
		w.handle(ctx, env)
	}
}

// Drain synchronously processes everything currently queued.
func (w *Worker) Drain(ctx context.Context) []calcdomain.Outcome {
	outcomes := make([]calcdomain.Outcome, 0, w.consumer.Len())
	for ctx.Err() == nil {
		env, ok := w.consumer.TryConsume()
		if !ok {
			break
		}
		outcomes = append(outcomes, w.handle(ctx, env))
	}
	return outcomes
}

func (w *Worker) handle(ctx context.Context, env queue.Envelope) calcdomain.Outcome {
	w.pipeline.SetQueueDepth(w.consumer.Len())
	if !env.EnqueuedAt.IsZero() {
		w.pipeline.ObserveQueueWait(w.clock.Now().Sub(env.EnqueuedAt))
	}
	w.log.Debug("queue.consume",
		zap.String("event_id", env.Event.EventID),
		zap.String("correlation_id", env.CorrelationID),
	)

	processCtx, cancel := context.WithTimeout(ctx, w.cfg.ProcessTimeout)
	defer cancel()

	outcome, err := w.processor.Process(processCtx, env)

	fields := []zap.Field{
		zap.String("event_id", outcome.EventID),
		zap.String("correlation_id", outcome.CorrelationID),
		zap.String("action", string(outcome.Action)),
	}
	if outcome.NBAID != nil {
		fields = append(fields, zap.String("nba_id", *outcome.NBAID))
	}
	if err != nil {
		w.log.Warn("queue.processed", append(fields, zap.Error(err))...)
	} else {
		w.log.Info("queue.processed", fields...)
	}
	return outcome
}
