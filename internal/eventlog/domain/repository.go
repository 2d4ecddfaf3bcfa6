package domain

import "context"

// Repository is append-only; entries are never mutated after Add.
type Repository interface {
	Add(ctx context.Context, entry Entry)
	ListForNBA(ctx context.Context, nbaID string) []Entry
	FindActionEvent(ctx context.Context, nbaID, status string) (Entry, bool)
	List(ctx context.Context, limit int) []Entry
	Len() int
}
