package calculation

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
	"github.com/smallbiznis/nbaflow/internal/calculation/liveoutcomes"
	"github.com/smallbiznis/nbaflow/internal/calculation/processed"
	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/enrichment"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	eventlogrepo "github.com/smallbiznis/nbaflow/internal/eventlog/repository"
	eventlogservice "github.com/smallbiznis/nbaflow/internal/eventlog/service"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	nbarepo "github.com/smallbiznis/nbaflow/internal/nba/repository"
	"github.com/smallbiznis/nbaflow/internal/observability/metrics"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEnricher struct {
	fill  *string
	panic bool
	calls int
}

func (s *stubEnricher) Enrich(_ context.Context, event *nbadomain.CalculationEvent) enrichment.Result {
	s.calls++
	if s.panic {
		panic("directory exploded")
	}
	if s.fill != nil && event.EnterpriseNumber == nil && event.AccountID != nil {
		event.EnterpriseNumber = s.fill
		return enrichment.Result{Filled: enrichment.FilledEnterpriseNumber}
	}
	return enrichment.Result{}
}

type stubPriorities map[string]int

func (s stubPriorities) PriorityFor(definitionID string) int { return s[definitionID] }

type fixture struct {
	processor *Processor
	repo      nbadomain.Repository
	eventLog  eventlogdomain.Service
	enricher  *stubEnricher
	hub       *liveoutcomes.Hub
	clock     *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	repo := nbarepo.Provide(node)
	eventLog := eventlogservice.NewService(eventlogservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  eventlogrepo.Provide(),
	})
	enricher := &stubEnricher{}
	hub := liveoutcomes.NewHub()

	processor := NewProcessor(Params{
		Log:        zap.NewNop(),
		Clock:      clk,
		Repo:       repo,
		EventLog:   eventLog,
		Enricher:   enricher,
		Priorities: stubPriorities{"upsell-premium": 7},
		Processed:  processed.NewMemoryStore(time.Hour, clk),
		Hub:        hub,
		Pipeline:   metrics.NewPipelineMetricsForTest(prometheus.NewRegistry()),
	})
	return &fixture{
		processor: processor,
		repo:      repo,
		eventLog:  eventLog,
		enricher:  enricher,
		hub:       hub,
		clock:     clk,
	}
}

func calcEvent(eventID string, account string) nbadomain.CalculationEvent {
	return nbadomain.CalculationEvent{
		EventID:         eventID,
		OccurredAt:      time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Source:          "calc.v1",
		NBADefinitionID: "upsell-premium",
		AccountID:       nbadomain.Optional(account),
		Context:         map[string]any{"score": 0.9},
		CreateNBA:       true,
	}
}

func envelope(event nbadomain.CalculationEvent) queue.Envelope {
	return queue.Envelope{Event: event, CorrelationID: "req_abcdef0123"}
}

func TestProcessCreatesAndSupersedes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	assert.Equal(t, eventlogdomain.ActionCreated, first.Action)
	require.NotNil(t, first.NBAID)
	assert.Equal(t, "req_abcdef0123", first.CorrelationID)

	f.clock.Advance(time.Minute)
	second, err := f.processor.Process(ctx, envelope(calcEvent("e2", "ACC-1")))
	require.NoError(t, err)
	assert.Equal(t, eventlogdomain.ActionCreatedAndSupersededPrior, second.Action)
	assert.Equal(t, []string{*first.NBAID}, second.AffectedIDs)

	active, err := f.repo.Find(ctx, nbadomain.FindFilter{AccountID: nbadomain.Optional("ACC-1")})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, *second.NBAID, active[0].ID)
	assert.Equal(t, 7, active[0].Priority)

	entries, err := f.eventLog.ListForNBA(ctx, *first.NBAID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestProcessOtherScopesUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	b, err := f.processor.Process(ctx, envelope(calcEvent("e2", "ACC-2")))
	require.NoError(t, err)

	assert.Equal(t, eventlogdomain.ActionCreated, b.Action)
	rec, err := f.repo.Get(ctx, *a.NBAID)
	require.NoError(t, err)
	assert.True(t, rec.Active)
}

func TestProcessDuplicateEventSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	dup, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)

	assert.Equal(t, eventlogdomain.ActionDuplicateSkipped, dup.Action)
	assert.Nil(t, dup.NBAID)

	list, err := f.repo.Find(ctx, nbadomain.FindFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	log, err := f.eventLog.List(ctx, eventlogdomain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, log.Total)
	assert.Equal(t, eventlogdomain.ActionDuplicateSkipped, log.Items[0].Action)
}

func TestProcessReplayAfterProcessedMarkerExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	second, err := f.processor.Process(ctx, envelope(calcEvent("e2", "ACC-1")))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	replay, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	assert.Equal(t, eventlogdomain.ActionDuplicateSkipped, replay.Action)
	assert.Nil(t, replay.NBAID)
	assert.Empty(t, replay.AffectedIDs)

	active, err := f.repo.Find(ctx, nbadomain.FindFilter{
		AccountID: nbadomain.Optional("ACC-1"),
		Status:    nbadomain.StatusNew,
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, *second.NBAID, active[0].ID)

	log, err := f.eventLog.List(ctx, eventlogdomain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, log.Total)
	assert.Equal(t, eventlogdomain.ActionDuplicateSkipped, log.Items[0].Action)
}

func TestProcessReplayRollsBackDeactivations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	other, err := f.processor.Process(ctx, envelope(calcEvent("e2", "ACC-2")))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	replay := calcEvent("e1", "ACC-1")
	replay.DeactivateNBAIDs = []string{*other.NBAID}
	outcome, err := f.processor.Process(ctx, envelope(replay))
	require.NoError(t, err)
	assert.Equal(t, eventlogdomain.ActionDuplicateSkipped, outcome.Action)

	rec, err := f.repo.Get(ctx, *other.NBAID)
	require.NoError(t, err)
	assert.True(t, rec.Active)

	kept, err := f.repo.Get(ctx, *first.NBAID)
	require.NoError(t, err)
	assert.True(t, kept.Active)
}

func TestProcessDeactivateOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)

	retract := calcEvent("e2", "ACC-1")
	retract.CreateNBA = false
	retract.DeactivateNBAIDs = []string{*created.NBAID, *created.NBAID, "nba_unknown"}

	outcome, err := f.processor.Process(ctx, envelope(retract))
	require.NoError(t, err)
	assert.Equal(t, eventlogdomain.ActionDeactivatedOnly, outcome.Action)
	assert.Nil(t, outcome.NBAID)
	assert.Equal(t, []string{*created.NBAID}, outcome.AffectedIDs)

	active, err := f.repo.Find(ctx, nbadomain.FindFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestProcessDeactivateByIDsWithCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.processor.Process(ctx, envelope(calcEvent("e1", "ACC-9")))
	require.NoError(t, err)

	event := calcEvent("e2", "ACC-1")
	event.DeactivateNBAIDs = []string{*other.NBAID}
	outcome, err := f.processor.Process(ctx, envelope(event))
	require.NoError(t, err)

	assert.Equal(t, eventlogdomain.ActionCreated, outcome.Action)
	assert.Equal(t, []string{*other.NBAID}, outcome.AffectedIDs)
}

func TestProcessEnrichesUnenrichedEnvelope(t *testing.T) {
	f := newFixture(t)
	f.enricher.fill = nbadomain.Optional("ENT-42")

	outcome, err := f.processor.Process(context.Background(), envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)
	assert.Equal(t, 1, f.enricher.calls)

	rec, err := f.repo.Get(context.Background(), *outcome.NBAID)
	require.NoError(t, err)
	require.NotNil(t, rec.EnterpriseNumber)
	assert.Equal(t, "ENT-42", *rec.EnterpriseNumber)

	env := envelope(calcEvent("e2", "ACC-2"))
	env.Enriched = true
	_, err = f.processor.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, f.enricher.calls)
}

func TestProcessFailureIsLoggedAndDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event := calcEvent("e1", "ACC-1")
	event.NBADefinitionID = ""
	outcome, err := f.processor.Process(ctx, envelope(event))
	require.Error(t, err)
	assert.Equal(t, eventlogdomain.ActionFailed, outcome.Action)
	assert.NotEmpty(t, outcome.Error)

	list, err := f.repo.Find(ctx, nbadomain.FindFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	log, err := f.eventLog.List(ctx, eventlogdomain.ListRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, log.Total)
	assert.Equal(t, eventlogdomain.ActionFailed, log.Items[0].Action)
	assert.Equal(t, "req_abcdef0123", log.Items[0].CorrelationID)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.enricher.panic = true

	outcome, err := f.processor.Process(context.Background(), envelope(calcEvent("e1", "ACC-1")))
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, eventlogdomain.ActionFailed, outcome.Action)
	assert.Equal(t, "e1", outcome.EventID)
}

func TestProcessPublishesToHub(t *testing.T) {
	f := newFixture(t)
	sub, _, err := f.hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	_, err = f.processor.Process(context.Background(), envelope(calcEvent("e1", "ACC-1")))
	require.NoError(t, err)

	select {
	case got := <-sub.Events():
		assert.Equal(t, "e1", got.EventID)
		assert.Equal(t, eventlogdomain.ActionCreated, got.Action)
	case <-time.After(time.Second):
		t.Fatal("outcome not published")
	}
}

func TestProcessGeneratesCorrelationID(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.processor.Process(context.Background(), queue.Envelope{Event: calcEvent("e1", "ACC-1")})
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.CorrelationID)
}

var _ calcdomain.ProcessedStore = processed.NewMemoryStore(0, clock.NewSystemClock())
