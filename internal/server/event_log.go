package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
)

func (s *Server) ListEventLog(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.eventLog.List(c.Request.Context(), eventlogdomain.ListRequest{Limit: page.Limit})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) MockDBOverview(c *gin.Context) {
	if s.directory == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	overview, err := s.directory.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
