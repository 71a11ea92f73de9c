package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const defaultPrefetch = 16

// AMQPSource consumes message inserted events from a durable RabbitMQ queue
// with manual acknowledgements.
type AMQPSource struct {
	url      string
	exchange string
	queue    string
	prefetch int
	log      zerolog.Logger
}

// NewAMQPSource creates a consumer bound to RoutingKeyMessageInserted on exchange.
func NewAMQPSource(url, exchange, queue string, log zerolog.Logger) *AMQPSource {
	return &AMQPSource{
		url:      url,
		exchange: exchange,
		queue:    queue,
		prefetch: defaultPrefetch,
		log:      log.With().Str("component", "amqp_source").Str("queue", queue).Logger(),
	}
}

func (s *AMQPSource) Run(ctx context.Context, handle Handler) error {
	if s.url == "" {
		return errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(s.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKeyMessageInserted, s.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(s.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	s.log.Info().Msg("consuming message inserts")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			s.process(ctx, d, handle)
		}
	}
}

// process acks a handled delivery. A failed first delivery is requeued once;
// a failed redelivery or a discardable error is rejected without requeue.
func (s *AMQPSource) process(ctx context.Context, d amqp.Delivery, handle Handler) {
	err := handle(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			s.log.Warn().Err(ackErr).Msg("ack failed")
		}
		return
	}

	requeue := !d.Redelivered && !errors.Is(err, ErrDiscard)
	s.log.Error().Err(err).Bool("requeue", requeue).Msg("message insert event failed")
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		s.log.Warn().Err(nackErr).Msg("nack failed")
	}
}

var _ Source = (*AMQPSource)(nil)
