package queue

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-queue-api/internal/handler"
	"github.com/jwalitptl/hospital-queue-api/internal/model"
	queueService "github.com/jwalitptl/hospital-queue-api/internal/service/queue"
)

type Handler struct {
	service *queueService.Service
}

func NewHandler(service *queueService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queue := r.Group("/queue")
	{
		queue.GET("", h.ListLane)
		queue.GET("/metrics", h.LaneMetrics)
		queue.GET("/:id", h.GetEntry)
		queue.GET("/:id/events", h.EntryEvents)
		queue.GET("/:id/wait", h.CurrentWait)
		queue.POST("/:id/transition", h.Transition)
		queue.PUT("/:id/priority", h.SetPriority)
		queue.POST("/:id/reorder", h.Reorder)
		queue.DELETE("/:id", h.DeleteEntry)
	}
}

func (h *Handler) ListLane(c *gin.Context) {
	status := model.QueueStatus(c.DefaultQuery("status", string(model.QueueStatusWaiting)))

	entries, err := h.service.ListLane(c.Request.Context(), &model.QueueFilters{
		Department: c.Query("department"),
		Status:     status,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": entries})
}

func (h *Handler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": entry})
}

func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	entry, err := h.service.Transition(c.Request.Context(), id, req.Action)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": entry})
}

func (h *Handler) SetPriority(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	var req model.SetPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.SetPriority(c.Request.Context(), id, req.Priority); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Reorder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	var req model.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.Reorder(c.Request.Context(), id, &req); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	if err := h.service.DeleteEntry(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) EntryEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	events, err := h.service.EntryEvents(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": events})
}

func (h *Handler) CurrentWait(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid queue entry ID"})
		return
	}

	wait, err := h.service.CurrentWait(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"wait_minutes": wait.Minutes(),
	}})
}

func (h *Handler) LaneMetrics(c *gin.Context) {
	filters := &model.MetricsFilters{Department: c.Query("department")}

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid from timestamp"})
			return
		}
		filters.From = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid to timestamp"})
			return
		}
		filters.To = parsed
	}

	metrics, err := h.service.LaneMetrics(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": metrics})
}
