package events

import (
	"context"
	"errors"
)

// RoutingKeyMessageInserted is the bus routing key for message inserted events.
const RoutingKeyMessageInserted = "messages.inserted"

// ErrDiscard marks a handler error that redelivery cannot fix.
var ErrDiscard = errors.New("discard event")

// Handler processes one event body. A nil error acknowledges the event.
type Handler func(ctx context.Context, body []byte) error

// Source delivers message inserted events, at least once, to a Handler.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}
