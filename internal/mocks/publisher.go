package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meeting-chat/internal/telemetry"
)

// PublisherMock records bus publishes made by the audit emitter, the message
// notifier and the websocket lifecycle hooks.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventsFor returns the events published under routingKey, in call order.
func (m *PublisherMock) EventsFor(routingKey string) []any {
	var published []any
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == routingKey {
			published = append(published, call.Arguments.Get(2))
		}
	}
	return published
}

var _ telemetry.Publisher = (*PublisherMock)(nil)
