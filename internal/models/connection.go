package models

import "time"

// Connection is one participant's live link to a meeting.
type Connection struct {
	ID            string    `db:"id" json:"id"`
	MeetingID     string    `db:"meeting_id" json:"meeting_id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	ConnectedAt   time.Time `db:"connected_at" json:"connected_at"`
	Active        bool      `db:"active" json:"active"`
}
