package operations

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/operations"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *operations.Service
}

func NewHandler(service *operations.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tasks := r.Group("/tasks")
	{
		tasks.POST("", h.CreateTask)
		tasks.PATCH("/:id/status", h.UpdateTaskStatus)
	}

	equipment := r.Group("/equipment")
	{
		equipment.POST("", h.CreateEquipment)
		equipment.PATCH("/:id/status", h.UpdateEquipmentStatus)
	}
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req model.CreateTaskRequest
	if !handler.Bind(c, &req) {
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, task)
}

func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTaskStatusRequest
	if !handler.Bind(c, &req) {
		return
	}

	task, err := h.service.UpdateTaskStatus(c.Request.Context(), handler.Caller(c), id, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, task)
}

func (h *Handler) CreateEquipment(c *gin.Context) {
	var req model.CreateEquipmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	item, err := h.service.CreateEquipment(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, item)
}

func (h *Handler) UpdateEquipmentStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateEquipmentStatusRequest
	if !handler.Bind(c, &req) {
		return
	}

	item, err := h.service.UpdateEquipmentStatus(c.Request.Context(), handler.Caller(c), id, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}
