package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
)

func (s *Server) ListNBAs(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.nbaSvc.List(c.Request.Context(), nbadomain.ListRequest{
		Pagination:       page,
		AccountID:        c.Query("account_id"),
		EnterpriseNumber: c.Query("enterprise_number"),
		Status:           c.Query("status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetNBA(c *gin.Context) {
	item, err := s.nbaSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) ListNBAEvents(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.nbaSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.eventLog.ListForNBA(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) RegisterNBAAction(c *gin.Context) {
	var req nbadomain.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.NBAID = c.Param("id")
	req.ActedBy = actorFromRequest(c, req.ActedBy)

	resp, err := s.nbaSvc.RegisterAction(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setEventID(c, resp.EventID)

	c.JSON(http.StatusCreated, resp)
}
