package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"meeting-chat/internal/broadcast"
	"meeting-chat/internal/events"
	"meeting-chat/internal/models"
	"meeting-chat/internal/observability"
)

// ErrMalformedEvent marks an event body that cannot be turned into a broadcast.
var ErrMalformedEvent = errors.New("malformed message inserted event")

// Dispatcher is the broadcast side of the adapter.
type Dispatcher interface {
	Dispatch(ctx context.Context, meetingID, messageID string, payload []byte) (models.BroadcastOutcome, error)
}

// Adapter turns message inserted events into exactly one Dispatch call each.
// Redelivered events are dispatched again; duplicate broadcasts are accepted.
type Adapter struct {
	dispatcher Dispatcher
	log        zerolog.Logger
	tracer     trace.Tracer
}

// NewAdapter constructs an Adapter.
func NewAdapter(dispatcher Dispatcher, log zerolog.Logger) *Adapter {
	return &Adapter{
		dispatcher: dispatcher,
		log:        log.With().Str("component", "trigger").Logger(),
		tracer:     otel.Tracer("meeting-chat/trigger"),
	}
}

// Handle processes one event body. A returned error means the event was not
// dispatched and should be redelivered by the source.
func (a *Adapter) Handle(ctx context.Context, body []byte) error {
	ctx, span := a.tracer.Start(ctx, "trigger.handle")
	defer span.End()

	evt, err := decodeEvent(body)
	if err != nil {
		observability.IncTriggerEvent("malformed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event")
		return fmt.Errorf("%w: %w", events.ErrDiscard, err)
	}
	span.SetAttributes(attribute.String("meeting.id", evt.MeetingID), attribute.String("message.id", evt.ID))

	payload, err := broadcast.EncodeMessage(evt)
	if err != nil {
		observability.IncTriggerEvent("encode_error")
		return fmt.Errorf("encode message %s: %w", evt.ID, err)
	}

	outcome, err := a.dispatcher.Dispatch(ctx, evt.MeetingID, evt.ID, payload)
	if err != nil {
		observability.IncTriggerEvent("dispatch_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return fmt.Errorf("dispatch message %s: %w", evt.ID, err)
	}

	observability.IncTriggerEvent("dispatched")
	a.log.Info().
		Str("meeting_id", outcome.MeetingID).
		Str("message_id", outcome.MessageID).
		Int("attempted", outcome.Attempted).
		Int("succeeded", outcome.Succeeded).
		Bool("timed_out", outcome.TimedOut).
		Msg("message broadcast")
	return nil
}

// Run feeds every event from source into Handle until ctx ends or the source stops.
func (a *Adapter) Run(ctx context.Context, source events.Source) error {
	return source.Run(ctx, a.Handle)
}

func decodeEvent(body []byte) (models.MessageInsertedEvent, error) {
	var evt models.MessageInsertedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return evt, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.MeetingID == "" {
		return evt, fmt.Errorf("%w: missing Id or MeetingId", ErrMalformedEvent)
	}
	return evt, nil
}
