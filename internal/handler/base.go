package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"
)

// StaffIDHeader carries the acting staff member's id. The identity system in
// front of this service authenticates the session; the core only receives the
// resolved actor id, never ambient session state.
const StaffIDHeader = "X-Staff-ID"

// ActorID returns the acting staff id, or uuid.Nil when the header is absent
// or malformed.
func ActorID(c *gin.Context) uuid.UUID {
	raw := c.GetHeader(StaffIDHeader)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Error writes a typed failure with enough detail for a staff-facing UI to
// explain why the action was refused.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		body := gin.H{"status": "error", "message": appErr.Message}
		if appErr.Retryable() {
			body["retryable"] = true
		}
		c.JSON(appErr.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
}
