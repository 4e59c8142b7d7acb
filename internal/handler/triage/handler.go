package triage

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-queue-api/internal/handler"
	"github.com/jwalitptl/hospital-queue-api/internal/model"
	triageService "github.com/jwalitptl/hospital-queue-api/internal/service/triage"
)

type Handler struct {
	service *triageService.Service
}

func NewHandler(service *triageService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	triage := r.Group("/triage")
	{
		triage.POST("/classify", h.Classify)
		triage.POST("/assessments", h.CreateAssessment)
		triage.GET("/assessments/:id", h.GetAssessment)
	}
	r.GET("/patients/:id/triage", h.ListForPatient)
}

// Classify runs the classifier without recording anything, for preview while
// the nurse is still entering vitals.
func (h *Handler) Classify(c *gin.Context) {
	var input model.TriageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	category := h.service.Classify(input)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"category": category}})
}

func (h *Handler) CreateAssessment(c *gin.Context) {
	var req model.CreateTriageAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	actorID := handler.ActorID(c)
	if actorID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing or invalid " + handler.StaffIDHeader + " header"})
		return
	}

	assessment, err := h.service.CreateAssessment(c.Request.Context(), &req, actorID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": assessment})
}

func (h *Handler) GetAssessment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid assessment ID"})
		return
	}

	assessment, err := h.service.GetAssessment(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": assessment})
}

func (h *Handler) ListForPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid patient ID"})
		return
	}

	assessments, err := h.service.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": assessments})
}
