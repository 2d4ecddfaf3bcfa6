package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	directorydomain "github.com/smallbiznis/nbaflow/internal/directory/domain"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/internal/queue"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusTooManyRequests {
			c.Header("Retry-After", "1")
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, nbadomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "state transition is not allowed",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, intakedomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "queue_full",
			Message: "event queue is full",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, queue.ErrQueueClosed),
		errors.Is(err, intakedomain.ErrRateLimitUnavailable),
		errors.Is(err, directorydomain.ErrUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, intakedomain.ErrInvalidEventID),
		errors.Is(err, intakedomain.ErrInvalidOccurredAt),
		errors.Is(err, intakedomain.ErrInvalidSource),
		errors.Is(err, intakedomain.ErrInvalidNBADefinitionID),
		errors.Is(err, intakedomain.ErrInvalidIdentifier),
		errors.Is(err, intakedomain.ErrInvalidDeactivateNBAIDs),
		errors.Is(err, nbadomain.ErrInvalidID),
		errors.Is(err, nbadomain.ErrInvalidStatus),
		errors.Is(err, nbadomain.ErrInvalidPagination),
		errors.Is(err, nbadomain.ErrCommentTooLong),
		errors.Is(err, eventlogdomain.ErrInvalidLimit):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, nbadomain.ErrNotFound),
		errors.Is(err, eventlogdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_pagination":
		return "limit"
	case "comment_too_long":
		return "comment"
	case "invalid_identifier":
		return "account_id"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_event_id":
		return "event_id must be a UUID"
	case "invalid_occurred_at":
		return "occurred_at must be an ISO-8601 timestamp"
	case "invalid_identifier":
		return "one of enterprise_number, account_id or contact_id is required"
	case "invalid_deactivate_nba_ids":
		return "deactivate_nba_ids is required when create_nba is false"
	case "invalid_status":
		return "status must be accepted or rejected"
	case "invalid_pagination":
		return "limit must be between 1 and 200 and offset must not be negative"
	case "comment_too_long":
		return "comment must be at most 1000 characters"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, http.StatusText(status)
}
