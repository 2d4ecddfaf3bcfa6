package option

import "gorm.io/gorm"

// QueryOption decorates a gorm statement built by the generic store.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func WithSelect(columns ...string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if len(columns) == 0 {
			return db
		}
		return db.Select(columns)
	})
}

func WithDistinct(columns ...string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		args := make([]interface{}, 0, len(columns))
		for _, column := range columns {
			args = append(args, column)
		}
		return db.Distinct(args...)
	})
}

func WithWhere(query string, args ...interface{}) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

func WithOrder(order string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
