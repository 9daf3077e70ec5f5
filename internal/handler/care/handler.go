package care

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/care"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *care.Service
}

func NewHandler(service *care.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/health-metrics", h.RecordMetric)
}

func (h *Handler) RecordMetric(c *gin.Context) {
	var req model.RecordHealthMetricRequest
	if !handler.Bind(c, &req) {
		return
	}

	metric, err := h.service.RecordMetric(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, metric)
}
