package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nbaflow/internal/clock"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	obscontext "github.com/smallbiznis/nbaflow/internal/observability/context"
	"github.com/smallbiznis/nbaflow/pkg/db/pagination"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const idPrefix = "evt_"

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  eventlogdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  eventlogdomain.Repository
}

func NewService(p Params) eventlogdomain.Service {
	return &Service{
		log:   p.Log.Named("eventlog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record stamps id, timestamps and correlation metadata, then appends the entry.
func (s *Service) Record(ctx context.Context, entry eventlogdomain.Entry) (eventlogdomain.Entry, error) {
	entry.Action = eventlogdomain.Action(strings.TrimSpace(string(entry.Action)))
	if entry.Action == "" {
		return eventlogdomain.Entry{}, eventlogdomain.ErrInvalidAction
	}

	now := s.clock.Now().UTC()
	entry.ID = idPrefix + s.genID.Generate().String()
	entry.CreatedAt = now
	if entry.ActionAt.IsZero() {
		entry.ActionAt = now
	} else {
		entry.ActionAt = entry.ActionAt.UTC()
	}
	if entry.AffectedIDs == nil {
		entry.AffectedIDs = []string{}
	}
	if strings.TrimSpace(entry.CorrelationID) == "" {
		entry.CorrelationID = correlation.ExtractCorrelationID(ctx)
	}

	payload := datatypes.JSONMap{}
	for key, value := range entry.Context {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	entry.Context = payload

	s.repo.Add(ctx, entry)
	return entry.Clone(), nil
}

func (s *Service) ListForNBA(ctx context.Context, nbaID string) ([]eventlogdomain.Entry, error) {
	return s.repo.ListForNBA(ctx, strings.TrimSpace(nbaID)), nil
}

func (s *Service) FindActionEvent(ctx context.Context, nbaID, status string) (*eventlogdomain.Entry, error) {
	entry, ok := s.repo.FindActionEvent(ctx, strings.TrimSpace(nbaID), strings.TrimSpace(status))
	if !ok {
		return nil, eventlogdomain.ErrNotFound
	}
	return &entry, nil
}

func (s *Service) List(ctx context.Context, req eventlogdomain.ListRequest) (eventlogdomain.ListResponse, error) {
	page := pagination.Pagination{Limit: req.Limit}
	if !page.Valid() {
		return eventlogdomain.ListResponse{}, eventlogdomain.ErrInvalidLimit
	}
	page = page.Normalize()

	items := s.repo.List(ctx, page.Limit)
	return eventlogdomain.ListResponse{Items: items, Total: s.repo.Len()}, nil
}
