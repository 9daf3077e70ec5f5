// Package handler holds the helpers shared by the HTTP handlers. Handlers
// push failures with c.Error and middleware.ErrorHandler renders them.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Caller returns the access context of the authenticated request.
func Caller(c *gin.Context) *access.Context {
	return middleware.AccessContext(c)
}

// Fail records err for the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID reads a UUID path parameter.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		Fail(c, apperrors.BadRequest("invalid "+param, err))
		return uuid.Nil, false
	}
	return id, true
}

// Bind decodes the JSON body into req. Field validation happens in the
// services.
func Bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		Fail(c, apperrors.BadRequest("invalid request body", err))
		return false
	}
	return true
}

// QueryInt reads a non-negative integer query parameter, falling back to def.
func QueryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		Fail(c, apperrors.BadRequest("invalid "+key, err))
		return 0, false
	}
	return n, true
}
