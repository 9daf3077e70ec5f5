package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *dashboard.Service
}

func NewHandler(service *dashboard.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
	r.GET("/dashboard", h.Dashboard)
}

// Me echoes the caller's resolved access context.
func (h *Handler) Me(c *gin.Context) {
	httputil.RespondWithSuccess(c, handler.Caller(c))
}

func (h *Handler) Dashboard(c *gin.Context) {
	bundle, err := h.service.For(c.Request.Context(), handler.Caller(c))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bundle)
}
