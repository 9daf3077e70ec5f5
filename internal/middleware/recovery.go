package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// The panic value and stack are logged, never returned.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		event := log.Error().
			Interface("panic", recovered).
			Bytes("stack", debug.Stack()).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("request_id", c.GetString(ContextRequestID))
		if ac := AccessContext(c); ac != nil {
			event = event.Str("user_id", ac.UserID.String())
		}
		event.Msg("recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			TraceID: c.GetString(ContextRequestID),
		})
	})
}
