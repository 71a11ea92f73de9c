package models

import "time"

// MaxContentLength bounds message content, counted in runes.
const MaxContentLength = 500

// Message represents a message posted in a meeting.
type Message struct {
	ID            string    `db:"id" json:"id"`
	MeetingID     string    `db:"meeting_id" json:"meeting_id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	Content       string    `db:"content" json:"content"`
	LikeCount     int       `db:"like_count" json:"like_count"`
	ReportedCount int       `db:"reported_count" json:"reported_count"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MessageInsertedEvent is the record carried by upstream insert notifications.
type MessageInsertedEvent struct {
	ID            string    `json:"Id"`
	MeetingID     string    `json:"MeetingId"`
	ParticipantID string    `json:"ParticipantId"`
	Content       string    `json:"Content"`
	CreatedAt     time.Time `json:"CreatedAt"`
}

// InsertedEvent converts a stored message to its insert notification.
func (m Message) InsertedEvent() MessageInsertedEvent {
	return MessageInsertedEvent{
		ID:            m.ID,
		MeetingID:     m.MeetingID,
		ParticipantID: m.ParticipantID,
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
	}
}
