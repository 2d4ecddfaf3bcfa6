package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
)

const heartbeatInterval = 15 * time.Second

// StreamOutcomes pushes worker acknowledgments as server-sent events.
func (s *Server) StreamOutcomes(c *gin.Context) {
	if s.outcomes == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscription, backlog, err := s.outcomes.Subscribe()
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	for _, outcome := range backlog {
		if err := writeOutcome(writer, outcome); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case outcome := <-subscription.Events():
			if err := writeOutcome(writer, outcome); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeOutcome(w io.Writer, outcome calcdomain.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: outcome\ndata: %s\n\n", data)
	return err
}
