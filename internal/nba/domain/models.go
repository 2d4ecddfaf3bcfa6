package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusNew      Status = "new"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status was set by a user action.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ParseStatus accepts the lowercase status names; blank means "no filter".
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if status == "" {
		return "", nil
	}
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// NBA is one version of a recommendation for a scope.
type NBA struct {
	ID               string            `json:"id"`
	NBADefinitionID  string            `json:"nba_definition_id"`
	EnterpriseNumber *string           `json:"enterprise_number"`
	AccountID        *string           `json:"account_id"`
	ContactID        *string           `json:"contact_id"`
	Active           bool              `json:"active"`
	Status           Status            `json:"status"`
	Priority         int               `json:"priority"`
	Source           string            `json:"source"`
	EventID          string            `json:"event_id"`
	Context          datatypes.JSONMap `json:"context"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (n NBA) Scope() Scope {
	return Scope{
		NBADefinitionID:  n.NBADefinitionID,
		AccountID:        n.AccountID,
		EnterpriseNumber: n.EnterpriseNumber,
	}
}

// Clone returns a copy that shares no mutable state with n.
func (n NBA) Clone() NBA {
	n.EnterpriseNumber = clonePtr(n.EnterpriseNumber)
	n.AccountID = clonePtr(n.AccountID)
	n.ContactID = clonePtr(n.ContactID)
	n.Context = CloneContext(n.Context)
	return n
}

// Scope identifies "the current recommendation" for a target. Absent
// identifiers take part in the comparison as absent.
type Scope struct {
	NBADefinitionID  string
	AccountID        *string
	EnterpriseNumber *string
}

func (s Scope) Matches(n NBA) bool {
	return n.NBADefinitionID == s.NBADefinitionID &&
		sameOptional(n.AccountID, s.AccountID) &&
		sameOptional(n.EnterpriseNumber, s.EnterpriseNumber)
}

func (s Scope) String() string {
	return s.NBADefinitionID + "|" + optionalString(s.AccountID) + "|" + optionalString(s.EnterpriseNumber)
}

// FindFilter narrows active records; nil fields do not filter.
type FindFilter struct {
	AccountID        *string
	EnterpriseNumber *string
	Status           Status
}

func (f FindFilter) Matches(n NBA) bool {
	if !n.Active {
		return false
	}
	if f.AccountID != nil && !sameOptional(n.AccountID, f.AccountID) {
		return false
	}
	if f.EnterpriseNumber != nil && !sameOptional(n.EnterpriseNumber, f.EnterpriseNumber) {
		return false
	}
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	return true
}

// Optional trims value and maps blank to nil.
func Optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// NormalizeOptional is Optional for an already optional value.
func NormalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	return Optional(*value)
}

func CloneContext(ctx map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range ctx {
		out[key] = value
	}
	return out
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func clonePtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
