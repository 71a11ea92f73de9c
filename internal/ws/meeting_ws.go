package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"meeting-chat/internal/models"
	"meeting-chat/internal/observability"
)

const disconnectTimeout = 5 * time.Second

// Registry is the part of the connection registry the websocket layer drives.
type Registry interface {
	Connect(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error)
	Disconnect(ctx context.Context, connectionID string) bool
	Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error)
}

// inbound is a frame sent by the client.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type bindRequest struct {
	ParticipantID string `json:"participantId"`
}

// MeetingWebSocketHandler handles meeting websocket connections.
type MeetingWebSocketHandler struct {
	hub      *Hub
	registry Registry
	log      zerolog.Logger
}

// NewMeetingWebSocketHandler constructs a MeetingWebSocketHandler.
func NewMeetingWebSocketHandler(hub *Hub, registry Registry, log zerolog.Logger) *MeetingWebSocketHandler {
	return &MeetingWebSocketHandler{hub: hub, registry: registry, log: log.With().Str("component", "ws_handler").Logger()}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers it and reads until it closes.
func (h *MeetingWebSocketHandler) Handle(c *gin.Context) {
	meetingID := c.Param("meeting_id")
	if meetingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}

	ctx, span := otel.Tracer("meeting-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:        newConnID(),
		MeetingID:     meetingID,
		ParticipantID: observability.ParticipantIDFromRequest(c.Request),
		DeviceID:      observability.DeviceIDFromRequest(c.Request),
		IP:            observability.IPFromRequest(c.Request),
		RequestID:     observability.RequestIDFromRequest(c.Request),
		TraceID:       span.SpanContext().TraceID().String(),
		ConnectedAt:   time.Now(),
	}
	log := h.log.With().Str("connection_id", info.ConnID).Str("meeting_id", meetingID).Logger()

	// The hub must hold the connection before the registry advertises it.
	h.hub.Add(info, conn)
	if _, err := h.registry.Connect(ctx, info.ConnID, meetingID, info.ParticipantID); err != nil {
		h.hub.Remove(info.ConnID)
		log.Error().Err(err).Msg("register connection failed")
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, observability.WSRoutingKey, wsEventEnvelope("ws_connect", info, ""), headers)
	log.Info().Str("participant_id", info.ParticipantID).Msg("websocket connected")

	welcome, _ := json.Marshal(models.MeetingEvent{
		Type: "connected",
		Data: models.ConnectedPayload{ConnectionID: info.ConnID, MeetingID: meetingID},
	})
	if err := h.hub.Send(ctx, info.ConnID, welcome); err != nil {
		log.Warn().Err(err).Msg("welcome frame failed")
	}

	go h.readLoop(context.WithoutCancel(ctx), conn, info, log)
}

func (h *MeetingWebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo, log zerolog.Logger) {
	stop := make(chan struct{})
	var closeReason string
	defer func() {
		close(stop)
		h.hub.Remove(info.ConnID)

		dctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
		h.registry.Disconnect(dctx, info.ConnID)
		cancel()

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		headers := observability.BuildHeaders(info.RequestID, info.TraceID)
		_ = observability.PublishEvent(ctx, observability.WSRoutingKey, wsEventEnvelope("ws_disconnect", info, closeReason), headers)
		conn.Close()
		log.Info().Str("reason", closeReason).Msg("websocket disconnected")
	}()

	go h.pingLoop(info.ConnID, stop)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		h.handleFrame(ctx, info, raw, log)
	}
}

func (h *MeetingWebSocketHandler) handleFrame(ctx context.Context, info ConnInfo, raw []byte, log zerolog.Logger) {
	var frame inbound
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Debug().Err(err).Msg("ignoring malformed frame")
		return
	}
	switch frame.Type {
	case "bind":
		var req bindRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.ParticipantID == "" {
			log.Debug().Msg("ignoring bind without participant")
			return
		}
		if _, err := h.registry.Bind(ctx, info.ConnID, info.MeetingID, req.ParticipantID); err != nil {
			log.Warn().Err(err).Msg("bind failed")
		}
	case "ping":
		pong, _ := json.Marshal(models.MeetingEvent{Type: "pong", Data: struct{}{}})
		_ = h.hub.Send(ctx, info.ConnID, pong)
	default:
		log.Debug().Str("type", frame.Type).Msg("ignoring unknown frame")
	}
}

func (h *MeetingWebSocketHandler) pingLoop(connectionID string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := h.hub.ping(connectionID); err != nil {
				return
			}
		}
	}
}
