package entity

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/entity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Handler serves the role-scoped read endpoints for every entity kind.
type Handler struct {
	readers map[model.Kind]entity.AnyReader
}

func NewHandler(readers *entity.Readers) *Handler {
	return &Handler{readers: readers.Registry()}
}

// RegisterRoutes mounts GET /:kind and GET /:kind/:id. Register it after the
// static routes so they take precedence.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:kind", h.List)
	r.GET("/:kind/:id", h.Get)
}

func (h *Handler) reader(c *gin.Context) (entity.AnyReader, bool) {
	reader, ok := h.readers[model.Kind(c.Param("kind"))]
	if !ok {
		handler.Fail(c, apperrors.NotFound("resource type", nil))
		return nil, false
	}
	return reader, true
}

func (h *Handler) List(c *gin.Context) {
	reader, ok := h.reader(c)
	if !ok {
		return
	}
	limit, ok := handler.QueryInt(c, "limit", defaultLimit)
	if !ok {
		return
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}

	rows, err := reader.ListAny(c.Request.Context(), handler.Caller(c), repository.ListOptions{Limit: limit})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rows)
}

func (h *Handler) Get(c *gin.Context) {
	reader, ok := h.reader(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	row, err := reader.GetAny(c.Request.Context(), handler.Caller(c), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, row)
}
