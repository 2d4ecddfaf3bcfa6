package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/enrichment"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	"github.com/smallbiznis/nbaflow/internal/observability/logger"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/smallbiznis/nbaflow/internal/ratelimit"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiter decides whether a source may publish another event.
type Limiter interface {
	AllowSource(ctx context.Context, source string) (*ratelimit.RateLimitResult, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Publisher queue.Publisher
	Enricher  enrichment.Service
	Limiter   *ratelimit.IntakeLimiter `optional:"true"`
	Metrics   *metrics.Metrics         `optional:"true"`
	Pipeline  *metrics.PipelineMetrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	publisher queue.Publisher
	enricher  enrichment.Service
	limiter   Limiter
	metrics   *metrics.Metrics
	pipeline  *metrics.PipelineMetrics
}

func NewService(p Params) intakedomain.Service {
	if !p.Limiter.Enabled() {
		return newService(p, nil)
	}
	return newService(p, p.Limiter)
}

func newService(p Params, limiter Limiter) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:       log.Named("intake.service"),
		clock:     p.Clock,
		publisher: p.Publisher,
		enricher:  p.Enricher,
		limiter:   limiter,
		metrics:   p.Metrics,
		pipeline:  p.Pipeline,
	}
}

// Submit validates, enriches and enqueues one calculation event. It returns
// as soon as the event is queued; processing happens on the worker.
func (s *Service) Submit(ctx context.Context, req intakedomain.CalculationEventRequest) (intakedomain.Accepted, error) {
	transport := strings.TrimSpace(req.Transport)
	if transport == "" {
		transport = intakedomain.TransportHTTP
	}
	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	log := logger.WithContext(ctx, s.log)

	event, err := toEvent(req)
	if err != nil {
		s.metrics.RecordEventRejected(ctx, transport, err.Error())
		return intakedomain.Accepted{}, err
	}

	if s.limiter != nil {
		result, err := s.limiter.AllowSource(ctx, event.Source)
		if err != nil {
			log.Warn("intake rate limit check failed", zap.Error(err))
			s.metrics.RecordEventRejected(ctx, transport, intakedomain.ErrRateLimitUnavailable.Error())
			return intakedomain.Accepted{}, fmt.Errorf("%w: %v", intakedomain.ErrRateLimitUnavailable, err)
		}
		if result != nil && !result.Allowed {
			log.Warn("intake rate limit exceeded", zap.String("source", event.Source))
			s.metrics.RecordRateLimitDenied(ctx, event.Source, "source-rate")
			s.metrics.RecordEventRejected(ctx, transport, intakedomain.ErrRateLimited.Error())
			return intakedomain.Accepted{}, intakedomain.ErrRateLimited
		}
		s.metrics.RecordRateLimitAllowed(ctx, event.Source)
	}

	enriched := false
	if s.enricher != nil {
		result := s.enricher.Enrich(ctx, &event)
		s.pipeline.IncEnrichment(result.Filled)
		enriched = true
	}

	env := queue.Envelope{
		Event:         event,
		CorrelationID: correlationID,
		EnqueuedAt:    s.clock.Now().UTC(),
		Enriched:      enriched,
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		result := "error"
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			result = "queue_full"
		case errors.Is(err, queue.ErrQueueClosed):
			result = "closed"
		}
		s.pipeline.IncPublished(result)
		s.metrics.RecordEventRejected(ctx, transport, result)
		log.Warn("queue publish failed", zap.String("event_id", event.EventID), zap.Error(err))
		return intakedomain.Accepted{}, err
	}

	s.pipeline.IncPublished("accepted")
	s.metrics.RecordEventAccepted(ctx, event.Source, transport)
	log.Info("api.enqueue_event",
		zap.String("event_id", event.EventID),
		zap.String("nba_definition_id", event.NBADefinitionID),
		zap.String("source", event.Source),
		zap.String("transport", transport),
		zap.Bool("create_nba", event.CreateNBA),
		zap.Int("deactivate_count", len(event.DeactivateNBAIDs)),
	)

	return intakedomain.Accepted{Status: intakedomain.StatusAccepted, EventID: event.EventID}, nil
}
