package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/nbaflow/internal/directory/domain"
	"github.com/smallbiznis/nbaflow/pkg/db"
	"github.com/smallbiznis/nbaflow/pkg/db/option"
	"github.com/smallbiznis/nbaflow/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db      *gorm.DB
	clients repository.Reader[domain.Client]
}

func New(conn *gorm.DB) domain.Service {
	return &repo{
		db:      conn,
		clients: repository.ProvideStore[domain.Client](conn),
	}
}

func (r *repo) LookupByAccountID(ctx context.Context, accountID string) (string, bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", false, nil
	}
	rows, err := r.clients.Find(ctx, &domain.Client{AccountID: accountID},
		option.WithDistinct("enterprise_number"),
		option.WithWhere("enterprise_number <> ''"),
		option.WithLimit(2),
	)
	if err != nil {
		return "", false, fmt.Errorf("lookup by account_id: %w", err)
	}
	return single(rows, func(c *domain.Client) string { return c.EnterpriseNumber })
}

func (r *repo) LookupByEnterpriseNumber(ctx context.Context, enterpriseNumber string) (string, bool, error) {
	enterpriseNumber = strings.TrimSpace(enterpriseNumber)
	if enterpriseNumber == "" {
		return "", false, nil
	}
	rows, err := r.clients.Find(ctx, &domain.Client{EnterpriseNumber: enterpriseNumber},
		option.WithDistinct("account_id"),
		option.WithWhere("account_id <> ''"),
		option.WithLimit(2),
	)
	if err != nil {
		return "", false, fmt.Errorf("lookup by enterprise_number: %w", err)
	}
	return single(rows, func(c *domain.Client) string { return c.AccountID })
}

func single(rows []*domain.Client, pick func(*domain.Client) string) (string, bool, error) {
	if len(rows) != 1 || rows[0] == nil {
		return "", false, nil
	}
	value := strings.TrimSpace(pick(rows[0]))
	return value, value != "", nil
}

// Overview counts rows of the mock dataset tables; a missing table counts as 0.
func (r *repo) Overview(ctx context.Context) (domain.Overview, error) {
	users, err := r.clients.Count(ctx, nil)
	if err != nil && !db.IsMissingTableErr(err) {
		return domain.Overview{}, err
	}

	counts := make(map[string]int64, 3)
	for _, table := range []string{"invoices", "client_products", "client_employees"} {
		var n int64
		err := r.db.WithContext(ctx).Table(table).Count(&n).Error
		if err != nil && !db.IsMissingTableErr(err) {
			return domain.Overview{}, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}

	return domain.Overview{
		Users:           users,
		Invoices:        counts["invoices"],
		UserProducts:    counts["client_products"],
		ClientEmployees: counts["client_employees"],
	}, nil
}
