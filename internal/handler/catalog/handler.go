package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/catalog"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/services", h.CreateService)
	r.POST("/service-packages", h.CreatePackage)
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.CreateServiceRequest
	if !handler.Bind(c, &req) {
		return
	}

	svc, err := h.service.CreateService(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, svc)
}

func (h *Handler) CreatePackage(c *gin.Context) {
	var req model.CreateServicePackageRequest
	if !handler.Bind(c, &req) {
		return
	}

	pkg, err := h.service.CreatePackage(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, pkg)
}
