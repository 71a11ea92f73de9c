package models

import "time"

// BroadcastOutcome summarises one dispatch call. It is never persisted.
type BroadcastOutcome struct {
	MeetingID string `json:"meeting_id"`
	MessageID string `json:"message_id"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	TimedOut  bool   `json:"timed_out,omitempty"`
}

// Failed returns the number of attempts that did not succeed.
func (o BroadcastOutcome) Failed() int {
	return o.Attempted - o.Succeeded
}

// MeetingEvent is pushed over websocket connections.
type MeetingEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// MessagePayload is the data of a "message" meeting event.
type MessagePayload struct {
	ID            string    `json:"id"`
	MeetingID     string    `json:"meetingId"`
	ParticipantID string    `json:"participantId"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ConnectedPayload is the data of a "connected" meeting event.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	MeetingID    string `json:"meetingId"`
}
