package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/nbaflow/pkg/db/pagination"
)

type Service interface {
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*NBA, error)
	RegisterAction(ctx context.Context, req ActionRequest) (ActionResponse, error)
}

type ListRequest struct {
	pagination.Pagination
	AccountID        string `form:"account_id"`
	EnterpriseNumber string `form:"enterprise_number"`
	Status           string `form:"status"`
}

type ListResponse struct {
	Items  []NBA `json:"items"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type ActionRequest struct {
	NBAID    string     `json:"-"`
	Status   string     `json:"status"`
	ActionAt *time.Time `json:"action_at,omitempty"`
	Comment  *string    `json:"comment,omitempty"`
	ActedBy  string     `json:"acted_by,omitempty"`
}

type ActionResponse struct {
	EventID  string    `json:"event_id"`
	NBAID    string    `json:"nba_id"`
	Status   Status    `json:"status"`
	ActedBy  string    `json:"acted_by"`
	ActionAt time.Time `json:"action_at"`
}

const MaxCommentLength = 1000

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPagination = errors.New("invalid_pagination")
	ErrCommentTooLong    = errors.New("comment_too_long")
	ErrInvalidTransition = errors.New("invalid_transition")
)
