package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/nbaflow/internal/observability/context"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
	// QuietRoutes are logged at debug level regardless of status.
	QuietRoutes []string
}

// GinMiddleware logs each request with correlation identifiers and safe fields.
// The request id doubles as the pipeline correlation id.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(cfg.QuietRoutes))
	for _, route := range cfg.QuietRoutes {
		quiet[strings.TrimSpace(route)] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = correlation.ContextWithCorrelationID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", clampZero(c.Request.ContentLength)),
			zap.Int64("bytes_out", clampZero(int64(c.Writer.Size()))),
		}
		if eventID := strings.TrimSpace(c.GetString("event_id")); eventID != "" {
			fields = append(fields, zap.String("event_id", eventID))
		}

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Error(lastErr.Err))
			}
		}

		_, isQuiet := quiet[route]
		logRequest(FromContext(c.Request.Context()), status, isQuiet, fields)
	}
}

// NewRequestID returns an id in the req_<10 hex> form used across the pipeline.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(correlation.HeaderName))
	if requestID == "" {
		requestID = strings.TrimSpace(c.GetString(requestIDKey))
	}
	if requestID == "" {
		requestID = NewRequestID()
	}

	c.Set(requestIDKey, requestID)
	c.Header(correlation.HeaderName, requestID)
	return requestID
}

func logRequest(log *zap.Logger, status int, quiet bool, fields []zap.Field) {
	if log == nil {
		return
	}

	switch {
	case quiet:
		log.Debug("http_request", fields...)
	case status >= http.StatusInternalServerError:
		log.Error("http_request", fields...)
	case status >= http.StatusBadRequest:
		log.Warn("http_request", fields...)
	default:
		log.Info("http_request", fields...)
	}
}

func clampZero(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
