package broadcast

import (
	"encoding/json"

	"meeting-chat/internal/models"
)

// EventTypeMessage tags a new chat message on the wire.
const EventTypeMessage = "message"

// EncodeMessage builds the outbound envelope for a newly inserted message.
func EncodeMessage(evt models.MessageInsertedEvent) ([]byte, error) {
	return json.Marshal(models.MeetingEvent{
		Type: EventTypeMessage,
		Data: models.MessagePayload{
			ID:            evt.ID,
			MeetingID:     evt.MeetingID,
			ParticipantID: evt.ParticipantID,
			Content:       evt.Content,
			CreatedAt:     evt.CreatedAt,
		},
	})
}
