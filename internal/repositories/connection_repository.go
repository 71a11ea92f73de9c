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
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionExists   = errors.New("connection already exists")
)

const uniqueViolation = "23505"

const connectionColumns = `id, meeting_id, participant_id, connected_at, active`

// ConnectionRepository stores connection records keyed by connection id.
type ConnectionRepository interface {
	Save(ctx context.Context, conn models.Connection) (models.Connection, error)
	Get(ctx context.Context, connectionID string) (models.Connection, error)
	ListActive(ctx context.Context, meetingID string) ([]models.Connection, error)
	Deactivate(ctx context.Context, connectionID string) (bool, error)
	Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error)
}

// ConnectionRepo is a sqlx-backed repository.
type ConnectionRepo struct {
	db *sqlx.DB
}

// NewConnectionRepo constructs ConnectionRepo.
func NewConnectionRepo(db *sqlx.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// Save inserts a new connection row.
func (r *ConnectionRepo) Save(ctx context.Context, conn models.Connection) (models.Connection, error) {
	var saved models.Connection
	err := r.db.QueryRowxContext(ctx, `INSERT INTO connections (id, meeting_id, participant_id, connected_at, active) VALUES ($1, $2, $3, $4, $5) RETURNING `+connectionColumns,
		conn.ID, conn.MeetingID, conn.ParticipantID, conn.ConnectedAt, conn.Active).StructScan(&saved)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.Connection{}, ErrConnectionExists
	}
	return saved, err
}

// Get fetches a connection regardless of its active flag.
func (r *ConnectionRepo) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	var conn models.Connection
	err := r.db.GetContext(ctx, &conn, `SELECT `+connectionColumns+` FROM connections WHERE id=$1`, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// ListActive returns the active connections of a meeting.
func (r *ConnectionRepo) ListActive(ctx context.Context, meetingID string) ([]models.Connection, error) {
	conns := []models.Connection{}
	err := r.db.SelectContext(ctx, &conns, `SELECT `+connectionColumns+` FROM connections WHERE meeting_id=$1 AND active = TRUE`, meetingID)
	return conns, err
}

// Deactivate flips an active connection to inactive. It reports whether a row changed.
func (r *ConnectionRepo) Deactivate(ctx context.Context, connectionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE connections SET active = FALSE WHERE id=$1 AND active = TRUE`, connectionID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Bind fills the meeting and participant of an active connection when they are still empty.
func (r *ConnectionRepo) Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `UPDATE connections
        SET meeting_id = COALESCE(NULLIF(meeting_id, ''), $2),
            participant_id = COALESCE(NULLIF(participant_id, ''), $3)
        WHERE id=$1 AND active = TRUE
        RETURNING `+connectionColumns, connectionID, meetingID, participantID).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}
