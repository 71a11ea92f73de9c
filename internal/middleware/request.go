package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meeting-chat/internal/observability"
)

const (
	RequestIDKey     = "request_id"
	ParticipantIDKey = "participantID"
	requestIDHeader  = "X-Request-Id"
)

// RequestID stores the caller's request id, or a fresh one, on the context
// and echoes it back in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(requestIDHeader, id)

		if participantID := observability.ParticipantIDFromRequest(c.Request); participantID != "" {
			c.Set(ParticipantIDKey, participantID)
		}
		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", observability.IPFromRequest(c.Request)).
			Str("device_id", observability.DeviceIDFromRequest(c.Request)).
			Str("request_id", c.GetString(RequestIDKey)).
			Msg("request")
	}
}
