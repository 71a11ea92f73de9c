package rabbitmq

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meeting-chat/internal/events"
	"meeting-chat/internal/mocks"
	"meeting-chat/internal/models"
)

func TestNewPublisherWithoutURLIsNoop(t *testing.T) {
	p := NewPublisher("", "meeting.events", zerolog.Nop())
	require.Equal(t, "noop", PublisherMode(p))
	require.Equal(t, "empty amqp url", PublisherNoopReason(p))
	require.NoError(t, p.Publish(context.Background(), "x", map[string]string{"a": "b"}, nil))
	require.NoError(t, p.Close())
}

func TestMessageNotifierPublishesInsertEvent(t *testing.T) {
	pub := new(mocks.PublisherMock)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := models.Message{ID: "m1", MeetingID: "meet1", ParticipantID: "p1", Content: "hi", CreatedAt: created}

	pub.On("Publish", mock.Anything, events.RoutingKeyMessageInserted, msg.InsertedEvent(), map[string]string(nil)).Return(nil).Once()

	require.NoError(t, NewMessageNotifier(pub).MessageInserted(context.Background(), msg))
	pub.AssertExpectations(t)
}
