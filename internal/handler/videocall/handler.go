package videocall

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/videocall"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *videocall.Service
}

func NewHandler(service *videocall.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the call lifecycle under its appointment.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	calls := r.Group("/appointments/:id/video-call")
	{
		calls.POST("", h.Create)
		calls.POST("/join", h.Join)
		calls.POST("/end", h.End)
		calls.POST("/cancel", h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	call, err := h.service.Create(c.Request.Context(), handler.Caller(c), appointmentID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, call)
}

func (h *Handler) Join(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	info, err := h.service.Join(c.Request.Context(), handler.Caller(c), appointmentID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, info)
}

func (h *Handler) End(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	// The body is optional; an empty one ends the call with the measured
	// duration.
	var req model.EndVideoCallRequest
	if c.Request.ContentLength != 0 && !handler.Bind(c, &req) {
		return
	}

	call, err := h.service.End(c.Request.Context(), handler.Caller(c), appointmentID, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, call)
}

func (h *Handler) Cancel(c *gin.Context) {
	appointmentID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	call, err := h.service.Cancel(c.Request.Context(), handler.Caller(c), appointmentID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, call)
}
