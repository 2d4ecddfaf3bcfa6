package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nbaflow/internal/clock"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	eventlogrepo "github.com/smallbiznis/nbaflow/internal/eventlog/repository"
	eventlogservice "github.com/smallbiznis/nbaflow/internal/eventlog/service"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/internal/nba/repository"
	"github.com/smallbiznis/nbaflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc      nbadomain.Service
	repo     nbadomain.Repository
	eventLog eventlogdomain.Service
	clock    *clock.FakeClock
}

func setup(t *testing.T) testEnv {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	repo := repository.Provide(node)
	eventLog := eventlogservice.NewService(eventlogservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  eventlogrepo.Provide(),
	})
	svc := NewService(Params{Log: zap.NewNop(), Clock: clk, Repo: repo, EventLog: eventLog})
	return testEnv{svc: svc, repo: repo, eventLog: eventLog, clock: clk}
}

func (e testEnv) seed(t *testing.T, eventID, account string) nbadomain.NBA {
	t.Helper()
	var rec nbadomain.NBA
	err := e.repo.Transaction(context.Background(), func(tx nbadomain.Writer) error {
		var err error
		rec, _, err = tx.UpsertFromCalculationEvent(nbadomain.CalculationEvent{
			EventID:         eventID,
			Source:          "calc.v1",
			NBADefinitionID: "upsell-premium",
			AccountID:       nbadomain.Optional(account),
			CreateNBA:       true,
		}, 0, e.clock.Now())
		return err
	})
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return rec
}

func ptr(v string) *string { return &v }

func TestRegisterAction(t *testing.T) {
	env := setup(t)
	rec := env.seed(t, "e1", "ACC-1")

	resp, err := env.svc.RegisterAction(context.Background(), nbadomain.ActionRequest{
		NBAID:   rec.ID,
		Status:  "accepted",
		Comment: ptr("customer agreed"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.EventID, "evt_"))
	assert.Equal(t, rec.ID, resp.NBAID)
	assert.Equal(t, nbadomain.StatusAccepted, resp.Status)
	assert.Equal(t, "system", resp.ActedBy)
	assert.Equal(t, env.clock.Now(), resp.ActionAt)

	got, err := env.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, nbadomain.StatusAccepted, got.Status)

	entries, err := env.eventLog.ListForNBA(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "customer agreed", entries[0].Context["comment"])
}

func TestRegisterActionIsIdempotent(t *testing.T) {
	env := setup(t)
	rec := env.seed(t, "e1", "ACC-1")
	ctx := context.Background()

	first, err := env.svc.RegisterAction(ctx, nbadomain.ActionRequest{NBAID: rec.ID, Status: "rejected", ActedBy: "alice"})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	second, err := env.svc.RegisterAction(ctx, nbadomain.ActionRequest{NBAID: rec.ID, Status: "rejected", ActedBy: "bob"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := env.eventLog.ListForNBA(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRegisterActionErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     func(id string) nbadomain.ActionRequest
		prior   string
		wantErr error
	}{
		{
			name:    "invalid status",
			req:     func(id string) nbadomain.ActionRequest { return nbadomain.ActionRequest{NBAID: id, Status: "maybe"} },
			wantErr: nbadomain.ErrInvalidStatus,
		},
		{
			name:    "new is not an action",
			req:     func(id string) nbadomain.ActionRequest { return nbadomain.ActionRequest{NBAID: id, Status: "new"} },
			wantErr: nbadomain.ErrInvalidStatus,
		},
		{
			name: "comment too long",
			req: func(id string) nbadomain.ActionRequest {
				return nbadomain.ActionRequest{NBAID: id, Status: "accepted", Comment: ptr(strings.Repeat("x", nbadomain.MaxCommentLength+1))}
			},
			wantErr: nbadomain.ErrCommentTooLong,
		},
		{
			name:    "unknown id",
			req:     func(string) nbadomain.ActionRequest { return nbadomain.ActionRequest{NBAID: "nba_missing", Status: "accepted"} },
			wantErr: nbadomain.ErrNotFound,
		},
		{
			name:    "conflicting decision",
			req:     func(id string) nbadomain.ActionRequest { return nbadomain.ActionRequest{NBAID: id, Status: "rejected"} },
			prior:   "accepted",
			wantErr: nbadomain.ErrInvalidTransition,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setup(t)
			rec := env.seed(t, "e1", "ACC-1")
			if tc.prior != "" {
				_, err := env.svc.RegisterAction(context.Background(), nbadomain.ActionRequest{NBAID: rec.ID, Status: tc.prior})
				require.NoError(t, err)
			}

			_, err := env.svc.RegisterAction(context.Background(), tc.req(rec.ID))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterActionCommentAtLimit(t *testing.T) {
	env := setup(t)
	rec := env.seed(t, "e1", "ACC-1")

	_, err := env.svc.RegisterAction(context.Background(), nbadomain.ActionRequest{
		NBAID:   rec.ID,
		Status:  "accepted",
		Comment: ptr(strings.Repeat("é", nbadomain.MaxCommentLength)),
	})
	require.NoError(t, err)
}

func TestList(t *testing.T) {
	env := setup(t)
	env.seed(t, "e1", "ACC-1")
	latest := env.seed(t, "e2", "ACC-2")

	resp, err := env.svc.List(context.Background(), nbadomain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, pagination.DefaultLimit, resp.Limit)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, latest.ID, resp.Items[0].ID)

	filtered, err := env.svc.List(context.Background(), nbadomain.ListRequest{AccountID: "ACC-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
}

func TestListValidation(t *testing.T) {
	env := setup(t)

	_, err := env.svc.List(context.Background(), nbadomain.ListRequest{Status: "archived"})
	assert.ErrorIs(t, err, nbadomain.ErrInvalidStatus)

	_, err = env.svc.List(context.Background(), nbadomain.ListRequest{Pagination: pagination.Pagination{Limit: 500}})
	assert.ErrorIs(t, err, nbadomain.ErrInvalidPagination)

	_, err = env.svc.List(context.Background(), nbadomain.ListRequest{Pagination: pagination.Pagination{Offset: -1}})
	assert.ErrorIs(t, err, nbadomain.ErrInvalidPagination)
}

func TestGet(t *testing.T) {
	env := setup(t)

	_, err := env.svc.Get(context.Background(), " ")
	assert.ErrorIs(t, err, nbadomain.ErrInvalidID)

	_, err = env.svc.Get(context.Background(), "nba_missing")
	assert.ErrorIs(t, err, nbadomain.ErrNotFound)
}
