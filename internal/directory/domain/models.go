package domain

import (
	"context"
	"errors"
)

// Client is a row of the read-only client directory.
type Client struct {
	ID               string `json:"id" gorm:"primaryKey;type:text"`
	EnterpriseNumber string `json:"enterprise_number" gorm:"type:text;not null;index"`
	AccountID        string `json:"account_id" gorm:"type:text;not null;index"`
	FirstName        string `json:"first_name" gorm:"type:text;not null"`
	LastName         string `json:"last_name" gorm:"type:text;not null"`
	Email            string `json:"email" gorm:"type:text;not null"`
	Phone            string `json:"phone" gorm:"type:text;not null"`
	City             string `json:"city" gorm:"type:text;not null"`
	CreatedAt        string `json:"created_at" gorm:"type:text;not null"`
}

func (Client) TableName() string { return "clients" }

// Directory resolves one target identifier from the other. A lookup is found
// only when the key maps to exactly one distinct counterpart.
type Directory interface {
	LookupByAccountID(ctx context.Context, accountID string) (string, bool, error)
	LookupByEnterpriseNumber(ctx context.Context, enterpriseNumber string) (string, bool, error)
}

type Overview struct {
	Users           int64 `json:"users"`
	Invoices        int64 `json:"invoices"`
	UserProducts    int64 `json:"user_products"`
	ClientEmployees int64 `json:"client_employees"`
}

type Service interface {
	Directory
	Overview(ctx context.Context) (Overview, error)
}

var ErrUnavailable = errors.New("directory_unavailable")
