package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"meeting-chat/internal/models"
)

const defaultMaxRedeliveries = 3

type delivery struct {
	body    []byte
	attempt int
}

// ChannelSource is an in-process event queue. Failed events are queued again
// up to MaxRedeliveries times.
type ChannelSource struct {
	ch              chan delivery
	MaxRedeliveries int
	log             zerolog.Logger
}

// NewChannelSource creates a source with the given buffer size.
func NewChannelSource(buffer int, log zerolog.Logger) *ChannelSource {
	return &ChannelSource{
		ch:              make(chan delivery, buffer),
		MaxRedeliveries: defaultMaxRedeliveries,
		log:             log.With().Str("component", "channel_source").Logger(),
	}
}

// Publish enqueues an event body.
func (s *ChannelSource) Publish(ctx context.Context, body []byte) error {
	return s.enqueue(ctx, delivery{body: body})
}

// MessageInserted enqueues the insert event of a stored message.
func (s *ChannelSource) MessageInserted(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(msg.InsertedEvent())
	if err != nil {
		return err
	}
	return s.Publish(ctx, body)
}

func (s *ChannelSource) enqueue(ctx context.Context, d delivery) error {
	select {
	case s.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run hands queued events to handle until ctx is done.
func (s *ChannelSource) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-s.ch:
			err := handle(ctx, d.body)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrDiscard) || d.attempt >= s.MaxRedeliveries {
				s.log.Error().Err(err).Int("attempt", d.attempt).Msg("dropping event")
				continue
			}
			s.log.Warn().Err(err).Int("attempt", d.attempt).Msg("event failed, requeueing")
			d.attempt++
			go func() { _ = s.enqueue(ctx, d) }()
		}
	}
}

var _ Source = (*ChannelSource)(nil)
