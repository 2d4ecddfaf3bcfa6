package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/nbaflow/internal/clock"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultActor = "system"

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Repo     nbadomain.Repository
	EventLog eventlogdomain.Service
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	repo     nbadomain.Repository
	eventLog eventlogdomain.Service
}

func NewService(p Params) nbadomain.Service {
	return &Service{
		log:      p.Log.Named("nba.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		eventLog: p.EventLog,
	}
}

func (s *Service) List(ctx context.Context, req nbadomain.ListRequest) (nbadomain.ListResponse, error) {
	status, err := nbadomain.ParseStatus(req.Status)
	if err != nil {
		return nbadomain.ListResponse{}, err
	}
	if !req.Pagination.Valid() {
		return nbadomain.ListResponse{}, nbadomain.ErrInvalidPagination
	}
	page := req.Pagination.Normalize()

	items, total, err := s.repo.List(ctx, nbadomain.ListFilter{
		FindFilter: nbadomain.FindFilter{
			AccountID:        nbadomain.Optional(req.AccountID),
			EnterpriseNumber: nbadomain.Optional(req.EnterpriseNumber),
			Status:           status,
		},
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nbadomain.ListResponse{}, err
	}

	return nbadomain.ListResponse{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*nbadomain.NBA, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nbadomain.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// RegisterAction records a user decision on a recommendation. Accepted and
// rejected are final: repeating the same decision returns the original
// action, a different one is refused.
func (s *Service) RegisterAction(ctx context.Context, req nbadomain.ActionRequest) (nbadomain.ActionResponse, error) {
	nbaID := strings.TrimSpace(req.NBAID)
	if nbaID == "" {
		return nbadomain.ActionResponse{}, nbadomain.ErrInvalidID
	}
	status, err := nbadomain.ParseStatus(req.Status)
	if err != nil || !status.Terminal() {
		return nbadomain.ActionResponse{}, nbadomain.ErrInvalidStatus
	}

	var comment string
	if req.Comment != nil {
		comment = strings.TrimSpace(*req.Comment)
		if utf8.RuneCountInString(comment) > nbadomain.MaxCommentLength {
			return nbadomain.ActionResponse{}, nbadomain.ErrCommentTooLong
		}
	}

	actedBy := strings.TrimSpace(req.ActedBy)
	if actedBy == "" {
		actedBy = defaultActor
	}
	actionAt := s.clock.Now().UTC()
	if req.ActionAt != nil && !req.ActionAt.IsZero() {
		actionAt = req.ActionAt.UTC()
	}

	var recorded eventlogdomain.Entry
	var replay *eventlogdomain.Entry
	err = s.repo.Transaction(ctx, func(tx nbadomain.Writer) error {
		current, ok := tx.Get(nbaID)
		if !ok {
			return nbadomain.ErrNotFound
		}

		if current.Status.Terminal() {
			if current.Status != status {
				return nbadomain.ErrInvalidTransition
			}
			existing, err := s.eventLog.FindActionEvent(ctx, nbaID, string(status))
			if err != nil {
				if errors.Is(err, eventlogdomain.ErrNotFound) {
					return nbadomain.ErrInvalidTransition
				}
				return err
			}
			replay = existing
			return nil
		}

		if _, err := tx.UpdateStatus(nbaID, status, s.clock.Now()); err != nil {
			return err
		}

		payload := datatypes.JSONMap{}
		if comment != "" {
			payload["comment"] = comment
		}
		id := nbaID
		actor := actedBy
		recorded, err = s.eventLog.Record(ctx, eventlogdomain.Entry{
			Action:   eventlogdomain.ActionUserAction,
			NBAID:    &id,
			Status:   string(status),
			Source:   "user",
			Context:  payload,
			ActedBy:  &actor,
			ActionAt: actionAt,
		})
		return err
	})
	if err != nil {
		return nbadomain.ActionResponse{}, err
	}

	if replay != nil {
		logger.WithContext(ctx, s.log).Info("nba.action_replayed",
			zap.String("nba_id", nbaID),
			zap.String("status", string(status)),
			zap.String("event_id", replay.ID),
		)
		return toActionResponse(*replay), nil
	}

	logger.WithContext(ctx, s.log).Info("nba.action_registered",
		zap.String("nba_id", nbaID),
		zap.String("status", string(status)),
		zap.String("acted_by", actedBy),
		zap.String("event_id", recorded.ID),
	)
	return toActionResponse(recorded), nil
}

func toActionResponse(entry eventlogdomain.Entry) nbadomain.ActionResponse {
	resp := nbadomain.ActionResponse{
		EventID:  entry.ID,
		Status:   nbadomain.Status(entry.Status),
		ActionAt: entry.ActionAt,
	}
	if entry.NBAID != nil {
		resp.NBAID = *entry.NBAID
	}
	if entry.ActedBy != nil {
		resp.ActedBy = *entry.ActedBy
	}
	return resp
}
