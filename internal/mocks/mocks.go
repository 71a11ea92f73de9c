package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meeting-chat/internal/models"
	"meeting-chat/internal/repositories"
)

type ConnectionRepositoryMock struct {
	mock.Mock
}

func (m *ConnectionRepositoryMock) Save(ctx context.Context, conn models.Connection) (models.Connection, error) {
	args := m.Called(ctx, conn)
	var saved models.Connection
	if val := args.Get(0); val != nil {
		saved = val.(models.Connection)
	}
	return saved, args.Error(1)
}

func (m *ConnectionRepositoryMock) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	args := m.Called(ctx, connectionID)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) ListActive(ctx context.Context, meetingID string) ([]models.Connection, error) {
	args := m.Called(ctx, meetingID)
	var list []models.Connection
	if val := args.Get(0); val != nil {
		list = val.([]models.Connection)
	}
	return list, args.Error(1)
}

func (m *ConnectionRepositoryMock) Deactivate(ctx context.Context, connectionID string) (bool, error) {
	args := m.Called(ctx, connectionID)
	return args.Bool(0), args.Error(1)
}

func (m *ConnectionRepositoryMock) Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	args := m.Called(ctx, connectionID, meetingID, participantID)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Save(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var saved models.Message
	if val := args.Get(0); val != nil {
		saved = val.(models.Message)
	}
	return saved, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByMeeting(ctx context.Context, meetingID string) ([]models.Message, error) {
	args := m.Called(ctx, meetingID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

// ConnectionListerMock stands in for the registry on read paths.
type ConnectionListerMock struct {
	mock.Mock
}

func (m *ConnectionListerMock) ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Connection, error) {
	args := m.Called(ctx, meetingID)
	var list []models.Connection
	if val := args.Get(0); val != nil {
		list = val.([]models.Connection)
	}
	return list, args.Error(1)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(ctx context.Context, connectionID string, payload []byte) error {
	args := m.Called(ctx, connectionID, payload)
	return args.Error(0)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) Dispatch(ctx context.Context, meetingID, messageID string, payload []byte) (models.BroadcastOutcome, error) {
	args := m.Called(ctx, meetingID, messageID, payload)
	var outcome models.BroadcastOutcome
	if val := args.Get(0); val != nil {
		outcome = val.(models.BroadcastOutcome)
	}
	return outcome, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageInserted(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var (
	_ repositories.ConnectionRepository = (*ConnectionRepositoryMock)(nil)
	_ repositories.MessageRepository    = (*MessageRepositoryMock)(nil)
)
