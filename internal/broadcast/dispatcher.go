package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"meeting-chat/internal/models"
	"meeting-chat/internal/observability"
)

// ErrResolution means the active connection set of a meeting could not be read.
var ErrResolution = errors.New("resolve active connections")

const defaultWorkers = 16

// ConnectionResolver lists the live audience of a meeting.
type ConnectionResolver interface {
	ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Connection, error)
}

// Sender pushes bytes to one connection. Any non-nil error is a failed delivery.
type Sender interface {
	Send(ctx context.Context, connectionID string, payload []byte) error
}

// Options tunes the fan-out.
type Options struct {
	// Workers bounds concurrent sends per dispatch.
	Workers int
	// Timeout bounds a whole dispatch call; zero means no limit beyond ctx.
	Timeout time.Duration
}

// Dispatcher fans a payload out to every active connection of a meeting.
type Dispatcher struct {
	resolver ConnectionResolver
	sender   Sender
	workers  int
	timeout  time.Duration
	log      zerolog.Logger
	tracer   trace.Tracer
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(resolver ConnectionResolver, sender Sender, opts Options, log zerolog.Logger) *Dispatcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		resolver: resolver,
		sender:   sender,
		workers:  workers,
		timeout:  opts.Timeout,
		log:      log.With().Str("component", "dispatcher").Logger(),
		tracer:   otel.Tracer("meeting-chat/broadcast"),
	}
}

// Dispatch delivers payload to each active connection of the meeting.
// Per-connection failures only show up in the outcome counts; an error is
// returned only when the connection set cannot be resolved. Attempted counts
// sends that actually started; TimedOut is set when ctx ended before every
// connection was served.
func (d *Dispatcher) Dispatch(ctx context.Context, meetingID, messageID string, payload []byte) (models.BroadcastOutcome, error) {
	ctx, span := d.tracer.Start(ctx, "broadcast.dispatch", trace.WithAttributes(
		attribute.String("meeting.id", meetingID),
		attribute.String("message.id", messageID),
	))
	defer span.End()

	outcome := models.BroadcastOutcome{MeetingID: meetingID, MessageID: messageID}

	conns, err := d.resolver.ListActiveByMeeting(ctx, meetingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		observability.IncDispatch("resolution_error")
		return outcome, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if len(conns) == 0 {
		observability.IncDispatch("empty")
		return outcome, nil
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var attempted, completed, succeeded atomic.Int64
	done := make(chan struct{})

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(d.workers)
		for _, conn := range conns {
			if ctx.Err() != nil {
				break
			}
			conn := conn
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				attempted.Add(1)
				if d.deliver(ctx, conn, payload) {
					succeeded.Add(1)
				}
				completed.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Sends still in flight are abandoned.
	}
	// Succeeded is read first so it never exceeds Attempted while sends race.
	outcome.Succeeded = int(succeeded.Load())
	outcome.Attempted = int(attempted.Load())
	outcome.TimedOut = ctx.Err() != nil && completed.Load() < int64(len(conns))

	span.SetAttributes(
		attribute.Int("broadcast.attempted", outcome.Attempted),
		attribute.Int("broadcast.succeeded", outcome.Succeeded),
	)
	if outcome.TimedOut {
		observability.IncDispatch("timeout")
	} else {
		observability.IncDispatch("ok")
	}
	return outcome, nil
}

func (d *Dispatcher) deliver(ctx context.Context, conn models.Connection, payload []byte) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("connection_id", conn.ID).Msg("delivery panicked")
			ok = false
		}
		observability.ObserveDelivery(time.Since(start), ok)
	}()

	if err := d.sender.Send(ctx, conn.ID, payload); err != nil {
		d.log.Warn().Err(err).
			Str("connection_id", conn.ID).
			Str("meeting_id", conn.MeetingID).
			Msg("delivery failed")
		return false
	}
	return true
}
