package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meeting-chat/internal/models"
	"meeting-chat/internal/repositories"
	"meeting-chat/internal/telemetry"
)

// ConnectionLister reads the live audience of a meeting.
type ConnectionLister interface {
	ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Connection, error)
}

// Notifier announces a stored message to the change trigger. It is nil when
// the store itself emits insert notifications.
type Notifier interface {
	MessageInserted(ctx context.Context, msg models.Message) error
}

// MeetingHandler manages meeting message and connection endpoints.
type MeetingHandler struct {
	messageRepo repositories.MessageRepository
	connections ConnectionLister
	notifier    Notifier
	audit       *telemetry.AuditEmitter
	log         zerolog.Logger
}

// NewMeetingHandler constructs a MeetingHandler.
func NewMeetingHandler(messageRepo repositories.MessageRepository, connections ConnectionLister, notifier Notifier, audit *telemetry.AuditEmitter, log zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		messageRepo: messageRepo,
		connections: connections,
		notifier:    notifier,
		audit:       audit,
		log:         log.With().Str("component", "meeting_handler").Logger(),
	}
}

// PostMessage handles POST /meetings/:meeting_id/messages.
func (h *MeetingHandler) PostMessage(c *gin.Context) {
	meetingID := c.Param("meeting_id")

	var req struct {
		ParticipantID string `json:"participant_id" binding:"required"`
		Content       string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, meetingID, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > models.MaxContentLength {
		h.emitAudit(c, meetingID, "ERROR", "invalid content length")
		c.JSON(http.StatusBadRequest, gin.H{"error": "content must be between 1 and 500 characters"})
		return
	}

	msg, err := h.messageRepo.Save(c.Request.Context(), models.Message{
		ID:            uuid.NewString(),
		MeetingID:     meetingID,
		ParticipantID: req.ParticipantID,
		Content:       content,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("meeting_id", meetingID).Msg("store message failed")
		h.emitAudit(c, meetingID, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	if h.notifier != nil {
		if err := h.notifier.MessageInserted(c.Request.Context(), msg); err != nil {
			// The message is stored; only the live broadcast is lost.
			h.log.Error().Err(err).Str("message_id", msg.ID).Msg("message insert notification failed")
		}
	}

	h.emitAudit(c, meetingID, "INFO", "Meeting message posted")
	c.JSON(http.StatusCreated, msg)
}

// ListMessages handles GET /meetings/:meeting_id/messages.
func (h *MeetingHandler) ListMessages(c *gin.Context) {
	msgs, err := h.messageRepo.ListByMeeting(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListConnections handles GET /meetings/:meeting_id/connections.
func (h *MeetingHandler) ListConnections(c *gin.Context) {
	conns, err := h.connections.ListActiveByMeeting(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load connections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": conns})
}

func (h *MeetingHandler) emitAudit(c *gin.Context, meetingID, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), meetingID, participantIDFromContext(c))
}
