package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderActor names the user registering an NBA action when the body does not.
const HeaderActor = "X-User"

func actorFromRequest(c *gin.Context, fromBody string) string {
	if actor := strings.TrimSpace(fromBody); actor != "" {
		return actor
	}
	return strings.TrimSpace(c.GetHeader(HeaderActor))
}

// setEventID exposes the event id to the request logger.
func setEventID(c *gin.Context, eventID string) {
	if eventID = strings.TrimSpace(eventID); eventID != "" {
		c.Set("event_id", eventID)
	}
}
