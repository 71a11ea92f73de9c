package events

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresSource listens for NOTIFY payloads sent by the messages insert
// trigger. NOTIFY has no redelivery, so handler errors are only logged.
type PostgresSource struct {
	dsn     string
	channel string
	log     zerolog.Logger
}

// NewPostgresSource creates a LISTEN based source.
func NewPostgresSource(dsn, channel string, log zerolog.Logger) *PostgresSource {
	return &PostgresSource{
		dsn:     dsn,
		channel: channel,
		log:     log.With().Str("component", "postgres_source").Str("channel", channel).Logger(),
	}
}

func (s *PostgresSource) Run(ctx context.Context, handle Handler) error {
	listener := pq.NewListener(s.dsn, minReconnectInterval, maxReconnectInterval, s.onListenerEvent)
	defer listener.Close()

	if err := listener.Listen(s.channel); err != nil {
		return fmt.Errorf("listen %s: %w", s.channel, err)
	}
	s.log.Info().Msg("listening for message inserts")

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Sent after a reconnect; notifications may have been missed.
				continue
			}
			if err := handle(ctx, []byte(n.Extra)); err != nil {
				s.log.Error().Err(err).Msg("message insert notification failed")
			}
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.log.Warn().Err(err).Msg("listener ping failed")
				}
			}()
		}
	}
}

func (s *PostgresSource) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		s.log.Warn().Err(err).Msg("listener connection lost")
	case pq.ListenerEventReconnected:
		s.log.Info().Msg("listener reconnected")
	}
}

var _ Source = (*PostgresSource)(nil)
