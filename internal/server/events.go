package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
)

func (s *Server) IngestCalculationEvent(c *gin.Context) {
	var req intakedomain.CalculationEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	setEventID(c, req.EventID)
	req.Transport = intakedomain.TransportHTTP

	accepted, err := s.intake.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, accepted)
}
