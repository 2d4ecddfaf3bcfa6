package pagination

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Pagination struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// Valid reports whether limit and offset are inside the accepted window.
// A zero limit means "use the default".
func (p Pagination) Valid() bool {
	if p.Offset < 0 {
		return false
	}
	return p.Limit == 0 || (p.Limit >= 1 && p.Limit <= MaxLimit)
}

// Normalize applies the default limit and clamps out-of-range values.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type PageInfo struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Window returns the page of items selected by p together with its page info.
func Window[T any](items []T, p Pagination) ([]T, PageInfo) {
	p = p.Normalize()
	total := len(items)
	info := PageInfo{Total: total, Limit: p.Limit, Offset: p.Offset}
	if p.Offset >= total {
		return []T{}, info
	}

	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	info.HasMore = end < total

	page := make([]T, end-p.Offset)
	copy(page, items[p.Offset:end])
	return page, info
}
