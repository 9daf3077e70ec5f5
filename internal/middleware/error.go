package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler renders the last error a handler pushed with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last()
		status := httputil.StatusOf(lastErr.Err)

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Err(lastErr.Err).
			Str("trace_id", traceID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Msg("Request error")

		if status == http.StatusForbidden {
			role := "unknown"
			if ac := AccessContext(c); ac != nil {
				role = string(ac.Role)
			}
			metrics.AccessDeniedTotal.WithLabelValues(role).Inc()
		}

		if c.Writer.Written() {
			return
		}

		message := "internal server error"
		var appErr *apperrors.AppError
		if errors.As(lastErr.Err, &appErr) && status != http.StatusInternalServerError {
			message = appErr.Message
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Status:  "error",
			Code:    status,
			Message: message,
			TraceID: traceID,
		})
	}
}
