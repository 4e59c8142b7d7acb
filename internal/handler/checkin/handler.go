package checkin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-queue-api/internal/handler"
	"github.com/jwalitptl/hospital-queue-api/internal/model"
	checkinService "github.com/jwalitptl/hospital-queue-api/internal/service/checkin"
	queueService "github.com/jwalitptl/hospital-queue-api/internal/service/queue"
)

type Handler struct {
	service  *checkinService.Service
	queueSvc *queueService.Service
}

func NewHandler(service *checkinService.Service, queueSvc *queueService.Service) *Handler {
	return &Handler{service: service, queueSvc: queueSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	checkins := r.Group("/checkins")
	{
		checkins.POST("", h.CreateCheckIn)
		checkins.GET("", h.ListCheckIns)
		checkins.GET("/:id", h.GetCheckIn)
		checkins.POST("/:id/status", h.UpdateStatus)
		checkins.POST("/:id/queue", h.CreateQueueEntry)
	}
}

func (h *Handler) CreateCheckIn(c *gin.Context) {
	var req model.CreateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	checkIn, err := h.service.CreateCheckIn(c.Request.Context(), &req, handler.ActorID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": checkIn})
}

func (h *Handler) GetCheckIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid check-in ID"})
		return
	}

	checkIn, err := h.service.GetCheckIn(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": checkIn})
}

func (h *Handler) ListCheckIns(c *gin.Context) {
	filters := &model.CheckInFilters{
		Department: c.Query("department"),
		Status:     model.CheckInStatus(c.Query("status")),
	}

	if since := c.Query("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid since timestamp"})
			return
		}
		filters.Since = parsed
	}

	checkIns, err := h.service.ListCheckIns(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": checkIns})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid check-in ID"})
		return
	}

	var req model.UpdateCheckInStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// CreateQueueEntry puts a checked-in patient into a department lane.
func (h *Handler) CreateQueueEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid check-in ID"})
		return
	}

	var req model.CreateQueueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	entry, err := h.queueSvc.CreateFromCheckIn(c.Request.Context(), id, req.Department, req.Priority)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": entry})
}
