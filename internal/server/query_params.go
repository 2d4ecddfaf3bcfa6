package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nbaflow/pkg/db/pagination"
)

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parsePagination reads limit/offset query parameters without applying defaults.
func parsePagination(c *gin.Context) (pagination.Pagination, error) {
	var page pagination.Pagination

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		return page, newValidationError("limit", "invalid_limit", "limit must be an integer")
	}
	offset, err := parseOptionalInt(c.Query("offset"))
	if err != nil {
		return page, newValidationError("offset", "invalid_offset", "offset must be an integer")
	}

	if limit != nil {
		if *limit < 1 || *limit > pagination.MaxLimit {
			return page, newValidationError("limit", "invalid_limit", "limit must be between 1 and 200")
		}
		page.Limit = *limit
	}
	if offset != nil {
		if *offset < 0 {
			return page, newValidationError("offset", "invalid_offset", "offset must not be negative")
		}
		page.Offset = *offset
	}
	return page, nil
}
