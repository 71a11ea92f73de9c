package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeting-chat/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints. They are absent unless enabled.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	// GET /debug/audit-test?meeting_id=... emits one audit record scoped to the meeting.
	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		meetingID := c.Query("meeting_id")
		if meetingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "meeting_id is required"})
			return
		}

		requestID := requestIDFromContext(c)
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestID, meetingID, participantIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "meeting_id": meetingID, "request_id": requestID})
	})
}
