package domain

import (
	"context"
	"errors"
)

type Service interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	ListForNBA(ctx context.Context, nbaID string) ([]Entry, error)
	FindActionEvent(ctx context.Context, nbaID, status string) (*Entry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type ListRequest struct {
	Limit int `form:"limit"`
}

type ListResponse struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidLimit  = errors.New("invalid_limit")
	ErrNotFound      = errors.New("not_found")
)
