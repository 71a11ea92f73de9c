package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"meeting-chat/internal/models"
)

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "meeting_id", "participant_id", "content", "like_count", "reported_count", "active", "created_at"})
}

func TestMessageRepoSave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("m1", "meet1", "p1", "hi", true, now).
		WillReturnRows(messageRows().AddRow("m1", "meet1", "p1", "hi", 0, 0, true, now))

	msg, err := repo.Save(context.Background(), models.Message{ID: "m1", MeetingID: "meet1", ParticipantID: "p1", Content: "hi", Active: true, CreatedAt: now})
	require.NoError(t, err)
	require.Equal(t, "hi", msg.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoSaveDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := repo.Save(context.Background(), models.Message{ID: "m1", MeetingID: "meet1", Active: true})
	require.ErrorIs(t, err, ErrMessageExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM messages WHERE id=$1")).
		WithArgs("nope").
		WillReturnRows(messageRows())

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageRepoListByMeeting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM messages WHERE meeting_id=$1")).
		WithArgs("meet1").
		WillReturnRows(messageRows().AddRow("m1", "meet1", "p1", "hi", 2, 0, true, now))

	msgs, err := repo.ListByMeeting(context.Background(), "meet1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, 2, msgs[0].LikeCount)
}
