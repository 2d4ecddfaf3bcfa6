package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nbaflow/internal/calculation/liveoutcomes"
	"github.com/smallbiznis/nbaflow/internal/clock"
	directoryrepo "github.com/smallbiznis/nbaflow/internal/directory/repository"
	"github.com/smallbiznis/nbaflow/internal/enrichment"
	eventlogrepo "github.com/smallbiznis/nbaflow/internal/eventlog/repository"
	eventlogservice "github.com/smallbiznis/nbaflow/internal/eventlog/service"
	intakeservice "github.com/smallbiznis/nbaflow/internal/intake/service"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	nbarepo "github.com/smallbiznis/nbaflow/internal/nba/repository"
	nbaservice "github.com/smallbiznis/nbaflow/internal/nba/service"
	obsmiddleware "github.com/smallbiznis/nbaflow/internal/observability/logger"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	server *Server
	queue  *queue.Queue
	repo   nbadomain.Repository
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T, capacity int) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	directory := directoryrepo.Empty()
	q := queue.New(capacity)
	repo := nbarepo.Provide(node)
	eventLog := eventlogservice.NewService(eventlogservice.Params{Log: log, GenID: node, Clock: clk, Repo: eventlogrepo.Provide()})

	engine := gin.New()
	engine.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{ErrorClassifier: classifyErrorForLog}))
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin: engine,
		Intake: intakeservice.NewService(intakeservice.Params{
			Log:       log,
			Clock:     clk,
			Publisher: q,
			Enricher:  enrichment.New(enrichment.Params{Log: log, Directory: directory}),
		}),
		NBASvc:    nbaservice.NewService(nbaservice.Params{Log: log, Clock: clk, Repo: repo, EventLog: eventLog}),
		EventLog:  eventLog,
		Directory: directory,
		Outcomes:  liveoutcomes.NewHub(),
	})
	return testServer{server: srv, queue: q, repo: repo, clock: clk}
}

func (ts testServer) seed(t *testing.T, eventID, account string) nbadomain.NBA {
	t.Helper()
	var rec nbadomain.NBA
	err := ts.repo.Transaction(context.Background(), func(tx nbadomain.Writer) error {
		var err error
		rec, _, err = tx.UpsertFromCalculationEvent(nbadomain.CalculationEvent{
			EventID:         eventID,
			Source:          "calc.v1",
			NBADefinitionID: "upsell-premium",
			AccountID:       nbadomain.Optional(account),
			CreateNBA:       true,
		}, 1, ts.clock.Now())
		return err
	})
	require.NoError(t, err)
	return rec
}

func (ts testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	payload, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %s", rec.Body.String())
	return payload["type"].(string)
}

func calculationBody(eventID string) map[string]any {
	return map[string]any{
		"event_id":          eventID,
		"occurred_at":       "2026-07-01T11:00:00",
		"source":            "calc.v1",
		"nba_definition_id": "upsell-premium",
		"account_id":        "ACC-1",
		"context":           map[string]any{"score": 0.7},
	}
}

func TestIngestCalculationEvent(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(t, http.MethodPost, "/api/v1/internal/events/nba-calculation",
		calculationBody("0b7f4d36-6c1e-4d7e-9a31-3f5b6f2f1a10"),
		map[string]string{correlation.HeaderName: "req_1234567890"})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "0b7f4d36-6c1e-4d7e-9a31-3f5b6f2f1a10", body["event_id"])
	assert.Equal(t, "req_1234567890", rec.Header().Get(correlation.HeaderName))

	env, ok := ts.queue.TryConsume()
	require.True(t, ok)
	assert.Equal(t, "req_1234567890", env.CorrelationID)
}

func TestIngestCalculationEventErrors(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		prefill  bool
		body     any
		wantCode int
		wantType string
	}{
		{name: "bad uuid", capacity: 10, body: calculationBody("nope"), wantCode: http.StatusBadRequest, wantType: "validation_error"},
		{name: "malformed json", capacity: 10, body: "not an object", wantCode: http.StatusBadRequest, wantType: "validation_error"},
		{name: "queue full", capacity: 1, prefill: true, body: calculationBody("9f0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"), wantCode: http.StatusServiceUnavailable, wantType: "queue_full"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, tc.capacity)
			if tc.prefill {
				require.NoError(t, ts.queue.Publish(context.Background(), queue.Envelope{}))
			}

			rec := ts.do(t, http.MethodPost, "/api/v1/internal/events/nba-calculation", tc.body, nil)
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantType, errorType(t, rec))
		})
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	ts := newTestServer(t, 10)
	rec := ts.do(t, http.MethodPost, "/api/v1/internal/events/nba-calculation", calculationBody("nope"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decode(t, rec)["error"].(map[string]any)
	errs := payload["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "event_id", errs[0].(map[string]any)["field"])
}

func TestListAndGetNBA(t *testing.T) {
	ts := newTestServer(t, 10)
	rec := ts.seed(t, "e1", "ACC-1")

	list := ts.do(t, http.MethodGet, "/api/v1/nba?account_id=ACC-1", nil, nil)
	require.Equal(t, http.StatusOK, list.Code)
	body := decode(t, list)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 50, body["limit"])

	get := ts.do(t, http.MethodGet, "/api/v1/nba/"+rec.ID, nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, rec.ID, decode(t, get)["id"])

	missing := ts.do(t, http.MethodGet, "/api/v1/nba/nba_missing", nil, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "not_found", errorType(t, missing))
}

func TestListNBAValidation(t *testing.T) {
	ts := newTestServer(t, 10)

	for _, path := range []string{
		"/api/v1/nba?status=archived",
		"/api/v1/nba?limit=0",
		"/api/v1/nba?limit=201",
		"/api/v1/nba?offset=-1",
		"/api/v1/nba?limit=abc",
	} {
		rec := ts.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestRegisterNBAAction(t *testing.T) {
	ts := newTestServer(t, 10)
	rec := ts.seed(t, "e1", "ACC-1")
	path := "/api/v1/nba/" + rec.ID + "/actions"

	created := ts.do(t, http.MethodPost, path, map[string]any{"status": "accepted", "comment": "ok"}, map[string]string{HeaderActor: "alice"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	body := decode(t, created)
	assert.Equal(t, "alice", body["acted_by"])
	assert.Equal(t, "accepted", body["status"])

	replay := ts.do(t, http.MethodPost, path, map[string]any{"status": "accepted"}, nil)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, body["event_id"], decode(t, replay)["event_id"])

	conflict := ts.do(t, http.MethodPost, path, map[string]any{"status": "rejected"}, nil)
	require.Equal(t, http.StatusConflict, conflict.Code)

	invalid := ts.do(t, http.MethodPost, path, map[string]any{"status": "new"}, nil)
	require.Equal(t, http.StatusBadRequest, invalid.Code)

	unknown := ts.do(t, http.MethodPost, "/api/v1/nba/nba_missing/actions", map[string]any{"status": "accepted"}, nil)
	require.Equal(t, http.StatusNotFound, unknown.Code)

	events := ts.do(t, http.MethodGet, "/api/v1/nba/"+rec.ID+"/events", nil, nil)
	require.Equal(t, http.StatusOK, events.Code)
	assert.Len(t, decode(t, events)["items"], 1)

	log := ts.do(t, http.MethodGet, "/api/v1/event-log?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, log.Code)
	assert.EqualValues(t, 1, decode(t, log)["total"])
}

func TestMockDBOverview(t *testing.T) {
	ts := newTestServer(t, 10)
	rec := ts.do(t, http.MethodGet, "/api/v1/mock-db/overview", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["users"])
	assert.Contains(t, body, "user_products")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, 10)
	rec := ts.do(t, http.MethodGet, "/api/v1/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, rec))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: queue.ErrQueueFull, want: http.StatusServiceUnavailable},
		{err: nbadomain.ErrInvalidTransition, want: http.StatusConflict},
		{err: nbadomain.ErrCommentTooLong, want: http.StatusBadRequest},
		{err: nbadomain.ErrNotFound, want: http.StatusNotFound},
		{err: context.Canceled, want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.want, status, tc.err.Error())
	}
}
