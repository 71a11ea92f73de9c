package rabbitmq

import (
	"context"

	"meeting-chat/internal/events"
	"meeting-chat/internal/models"
)

// MessageNotifier announces stored messages on the bus so the AMQP source can
// pick them up.
type MessageNotifier struct {
	publisher Publisher
}

func NewMessageNotifier(publisher Publisher) *MessageNotifier {
	return &MessageNotifier{publisher: publisher}
}

// MessageInserted publishes the insert event of msg.
func (n *MessageNotifier) MessageInserted(ctx context.Context, msg models.Message) error {
	return n.publisher.Publish(ctx, events.RoutingKeyMessageInserted, msg.InsertedEvent(), nil)
}
