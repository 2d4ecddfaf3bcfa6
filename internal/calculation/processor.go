package calculation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
	"github.com/smallbiznis/nbaflow/internal/calculation/liveoutcomes"
	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/enrichment"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	obscontext "github.com/smallbiznis/nbaflow/internal/observability/context"
	"github.com/smallbiznis/nbaflow/internal/observability/logger"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/observability/tracing"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var ErrPanic = errors.New("calculation_panic")

// errReplayedEvent aborts the transaction when the event already produced a
// record whose processed marker has expired.
var errReplayedEvent = errors.New("replayed_event")

type PriorityResolver interface {
	PriorityFor(definitionID string) int
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Repo       nbadomain.Repository
	EventLog   eventlogdomain.Service
	Enricher   enrichment.Service
	Priorities PriorityResolver
	Processed  calcdomain.ProcessedStore
	Hub        *liveoutcomes.Hub        `optional:"true"`
	Metrics    *metrics.Metrics         `optional:"true"`
	Pipeline   *metrics.PipelineMetrics `optional:"true"`
}

// Processor applies one calculation event to the NBA repository.
type Processor struct {
	log        *zap.Logger
	clock      clock.Clock
	repo       nbadomain.Repository
	eventLog   eventlogdomain.Service
	enricher   enrichment.Service
	priorities PriorityResolver
	processed  calcdomain.ProcessedStore
	hub        *liveoutcomes.Hub
	metrics    *metrics.Metrics
	pipeline   *metrics.PipelineMetrics
	tracer     trace.Tracer
}

func NewProcessor(p Params) *Processor {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		log:        log.Named("calculation"),
		clock:      p.Clock,
		repo:       p.Repo,
		eventLog:   p.EventLog,
		enricher:   p.Enricher,
		priorities: p.Priorities,
		processed:  p.Processed,
		hub:        p.Hub,
		metrics:    p.Metrics,
		pipeline:   p.Pipeline,
		tracer:     otel.Tracer("nbaflow/calculation"),
	}
}

// Process handles a single envelope. Exactly one event log entry is written
// per call. Errors and panics are reported through a failed outcome; the
// event is never retried.
func (p *Processor) Process(ctx context.Context, env queue.Envelope) (outcome calcdomain.Outcome, err error) {
	event := env.Event
	correlationID := strings.TrimSpace(env.CorrelationID)
	if correlationID == "" {
		correlationID = correlation.NewID()
	}
	ctx = correlation.ContextWithCorrelationID(ctx, correlationID)
	ctx = obscontext.WithRequestID(ctx, correlationID)

	ctx, span := p.tracer.Start(ctx, "calculation.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(tracing.SafeAttributes(
			attribute.String("event_id", event.EventID),
			attribute.String("nba_definition_id", event.NBADefinitionID),
			attribute.String("source", event.Source),
		)...),
	)
	defer span.End()

	start := p.clock.Now()
	log := logger.WithContext(ctx, p.log).With(zap.String("event_id", event.EventID))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			outcome = p.fail(ctx, log, event, correlationID, err)
		}
		p.finish(ctx, span, outcome, err, p.clock.Now().Sub(start))
	}()

	seen, lookupErr := p.processed.IsProcessed(ctx, event.EventID)
	if lookupErr != nil {
		log.Warn("processed store lookup failed", zap.Error(lookupErr))
	}
	if seen {
		log.Info("calc.skip_duplicate")
		return p.skipDuplicate(ctx, log, event, correlationID), nil
	}

	if !env.Enriched && p.enricher != nil {
		result := p.enricher.Enrich(ctx, &event)
		p.pipeline.IncEnrichment(result.Filled)
	}

	outcome, err = p.apply(ctx, log, event, correlationID)
	if errors.Is(err, errReplayedEvent) {
		log.Info("calc.skip_duplicate", zap.String("reason", "event_id already applied"))
		if markErr := p.processed.MarkProcessed(ctx, event.EventID); markErr != nil {
			log.Warn("processed store update failed", zap.Error(markErr))
		}
		return p.skipDuplicate(ctx, log, event, correlationID), nil
	}
	if err != nil {
		return p.fail(ctx, log, event, correlationID, err), err
	}

	if markErr := p.processed.MarkProcessed(ctx, event.EventID); markErr != nil {
		log.Warn("processed store update failed", zap.Error(markErr))
	}

	fields := []zap.Field{
		zap.String("action", string(outcome.Action)),
		zap.Strings("affected_ids", outcome.AffectedIDs),
	}
	if outcome.NBAID != nil {
		fields = append(fields, zap.String("nba_id", *outcome.NBAID))
	}
	log.Info("calc.event_processed", fields...)
	return outcome, nil
}

func (p *Processor) apply(ctx context.Context, log *zap.Logger, event nbadomain.CalculationEvent, correlationID string) (calcdomain.Outcome, error) {
	now := p.clock.Now().UTC()
	outcome := calcdomain.Outcome{
		EventID:       event.EventID,
		CorrelationID: correlationID,
		AffectedIDs:   []string{},
	}

	err := p.repo.Transaction(ctx, func(tx nbadomain.Writer) error {
		if len(event.DeactivateNBAIDs) > 0 {
			deactivated, err := tx.DeactivateNBAsByIDs(event.DeactivateNBAIDs, now)
			if err != nil {
				return fmt.Errorf("deactivate by ids: %w", err)
			}
			log.Info("calc.nba_deactivated_by_ids",
				zap.Int("requested", len(event.DeactivateNBAIDs)),
				zap.Strings("deactivated", deactivated),
			)
			outcome.AffectedIDs = append(outcome.AffectedIDs, deactivated...)
		}

		entry := p.entryFor(event, correlationID, now)

		if !event.CreateNBA {
			outcome.Action = eventlogdomain.ActionDeactivatedOnly
			entry.Action = outcome.Action
			entry.AffectedIDs = append([]string(nil), outcome.AffectedIDs...)
			_, err := p.eventLog.Record(ctx, entry)
			return err
		}

		priority := 0
		if p.priorities != nil {
			priority = p.priorities.PriorityFor(event.NBADefinitionID)
		}
		record, created, err := tx.UpsertFromCalculationEvent(event, priority, now)
		if err != nil {
			return fmt.Errorf("upsert nba: %w", err)
		}
		if !created {
			return errReplayedEvent
		}
		log.Info("calc.nba_upserted",
			zap.String("nba_id", record.ID),
			zap.Stringp("account_id", record.AccountID),
			zap.Stringp("enterprise_number", record.EnterpriseNumber),
			zap.Int("priority", record.Priority),
		)

		superseded, err := tx.DeactivateOtherActiveNewForScope(record.Scope(), record.ID, now)
		if err != nil {
			return fmt.Errorf("supersede scope: %w", err)
		}

		outcome.Action = eventlogdomain.ActionCreated
		if len(superseded) > 0 {
			log.Info("calc.nba_deactivated",
				zap.String("keep_nba_id", record.ID),
				zap.Strings("deactivated", superseded),
			)
			outcome.Action = eventlogdomain.ActionCreatedAndSupersededPrior
			outcome.AffectedIDs = append(outcome.AffectedIDs, superseded...)
		}

		nbaID := record.ID
		outcome.NBAID = &nbaID
		entry.Action = outcome.Action
		entry.NBAID = &nbaID
		entry.Status = string(record.Status)
		entry.AffectedIDs = append([]string(nil), outcome.AffectedIDs...)
		_, err = p.eventLog.Record(ctx, entry)
		return err
	})
	if err != nil {
		return calcdomain.Outcome{}, err
	}

	outcome.ProcessedAt = now
	return outcome, nil
}

func (p *Processor) skipDuplicate(ctx context.Context, log *zap.Logger, event nbadomain.CalculationEvent, correlationID string) calcdomain.Outcome {
	now := p.clock.Now().UTC()
	entry := p.entryFor(event, correlationID, now)
	entry.Action = eventlogdomain.ActionDuplicateSkipped
	if _, err := p.eventLog.Record(ctx, entry); err != nil {
		log.Warn("event log append failed", zap.Error(err))
	}
	return calcdomain.Outcome{
		EventID:       event.EventID,
		CorrelationID: correlationID,
		Action:        eventlogdomain.ActionDuplicateSkipped,
		AffectedIDs:   []string{},
		ProcessedAt:   now,
	}
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, event nbadomain.CalculationEvent, correlationID string, cause error) calcdomain.Outcome {
	now := p.clock.Now().UTC()
	log.Error("calc.event_failed", zap.Error(cause))

	entry := p.entryFor(event, correlationID, now)
	entry.Action = eventlogdomain.ActionFailed
	entry.Context["error"] = cause.Error()
	if _, err := p.eventLog.Record(ctx, entry); err != nil {
		log.Warn("event log append failed", zap.Error(err))
	}
	return calcdomain.Outcome{
		EventID:       event.EventID,
		CorrelationID: correlationID,
		Action:        eventlogdomain.ActionFailed,
		AffectedIDs:   []string{},
		Error:         cause.Error(),
		ProcessedAt:   now,
	}
}

func (p *Processor) entryFor(event nbadomain.CalculationEvent, correlationID string, now time.Time) eventlogdomain.Entry {
	payload := datatypes.JSONMap{
		"source":            event.Source,
		"nba_definition_id": event.NBADefinitionID,
	}
	if !event.OccurredAt.IsZero() {
		payload["occurred_at"] = event.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return eventlogdomain.Entry{
		EventID:       event.EventID,
		CorrelationID: correlationID,
		Source:        event.Source,
		Context:       payload,
		ActionAt:      now,
	}
}

func (p *Processor) finish(ctx context.Context, span trace.Span, outcome calcdomain.Outcome, err error, elapsed time.Duration) {
	span.SetAttributes(attribute.String("action", string(outcome.Action)))
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "calculation failed")
		reason := "processing"
		if errors.Is(err, ErrPanic) {
			reason = "panic"
		}
		p.pipeline.IncFailure(reason)
	}

	p.pipeline.IncOutcome(string(outcome.Action))
	p.pipeline.ObserveProcessDuration(elapsed)
	p.metrics.RecordOutcome(ctx, string(outcome.Action))
	p.hub.Publish(outcome)
}
