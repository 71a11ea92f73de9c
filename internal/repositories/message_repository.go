package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meeting-chat/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageExists   = errors.New("message already exists")
)

const messageColumns = `id, meeting_id, participant_id, content, like_count, reported_count, active, created_at`

// MessageRepository is the append-only message store.
type MessageRepository interface {
	Save(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID string) (models.Message, error)
	ListByMeeting(ctx context.Context, meetingID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Save appends a message.
func (r *MessageRepo) Save(ctx context.Context, msg models.Message) (models.Message, error) {
	var saved models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, meeting_id, participant_id, content, active, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		msg.ID, msg.MeetingID, msg.ParticipantID, msg.Content, msg.Active, msg.CreatedAt).StructScan(&saved)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.Message{}, ErrMessageExists
	}
	return saved, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListByMeeting returns active messages ordered by creation.
func (r *MessageRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE meeting_id=$1 AND active = TRUE ORDER BY created_at ASC`, meetingID)
	return msgs, err
}
