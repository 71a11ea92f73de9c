package ws

import (
	"time"

	"github.com/google/uuid"

	"meeting-chat/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

func wsEventEnvelope(event string, info ConnInfo, reason string) observability.EventEnvelope {
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "meeting",
				"resource_id": info.MeetingID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"participant_id": info.ParticipantID,
				"device_id":      info.DeviceID,
				"ip":             info.IP,
			},
		},
	}
}
