package clinical

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/clinical"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *clinical.Service
}

func NewHandler(service *clinical.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/medical-records")
	{
		records.POST("", h.CreateMedicalRecord)
		records.POST("/:id/prescriptions", h.AddPrescription)
	}

	labTests := r.Group("/lab-tests")
	{
		labTests.POST("", h.OrderLabTest)
		labTests.PATCH("/:id/result", h.RecordLabResult)
	}
}

func (h *Handler) CreateMedicalRecord(c *gin.Context) {
	var req model.CreateMedicalRecordRequest
	if !handler.Bind(c, &req) {
		return
	}

	record, err := h.service.CreateMedicalRecord(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func (h *Handler) AddPrescription(c *gin.Context) {
	recordID, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.CreatePrescriptionRequest
	if !handler.Bind(c, &req) {
		return
	}

	prescription, err := h.service.AddPrescription(c.Request.Context(), handler.Caller(c), recordID, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, prescription)
}

func (h *Handler) OrderLabTest(c *gin.Context) {
	var req model.OrderLabTestRequest
	if !handler.Bind(c, &req) {
		return
	}

	test, err := h.service.OrderLabTest(c.Request.Context(), handler.Caller(c), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, test)
}

func (h *Handler) RecordLabResult(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.RecordLabResultRequest
	if !handler.Bind(c, &req) {
		return
	}

	test, err := h.service.RecordLabResult(c.Request.Context(), handler.Caller(c), id, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, test)
}
