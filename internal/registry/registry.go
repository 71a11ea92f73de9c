package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"meeting-chat/internal/models"
	"meeting-chat/internal/observability"
	"meeting-chat/internal/repositories"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// Service tracks which connections are live in which meeting.
type Service struct {
	repo repositories.ConnectionRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService builds a registry on top of a connection store.
func NewService(repo repositories.ConnectionRepository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "registry").Logger(),
		now:  time.Now,
	}
}

// Connect stores a new active connection. Meeting and participant may be empty
// and bound later.
func (s *Service) Connect(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	if connectionID == "" {
		return models.Connection{}, fmt.Errorf("connect: empty connection id: %w", ErrInvalidArgument)
	}

	conn, err := s.repo.Save(ctx, models.Connection{
		ID:            connectionID,
		MeetingID:     meetingID,
		ParticipantID: participantID,
		ConnectedAt:   s.now().UTC(),
		Active:        true,
	})
	if errors.Is(err, repositories.ErrConnectionExists) {
		return models.Connection{}, fmt.Errorf("connect %s: %w", connectionID, ErrInvalidArgument)
	}
	if err != nil {
		return models.Connection{}, fmt.Errorf("connect %s: %w", connectionID, err)
	}

	observability.IncRegistryEvent("connect")
	s.log.Debug().Str("connection_id", connectionID).Str("meeting_id", meetingID).Msg("connection registered")
	return conn, nil
}

// Disconnect marks a connection inactive. Unknown or already inactive ids are
// a no-op, and store failures are logged rather than returned.
func (s *Service) Disconnect(ctx context.Context, connectionID string) bool {
	if connectionID == "" {
		return false
	}
	changed, err := s.repo.Deactivate(ctx, connectionID)
	if err != nil {
		s.log.Warn().Err(err).Str("connection_id", connectionID).Msg("disconnect failed")
		return false
	}
	if changed {
		observability.IncRegistryEvent("disconnect")
		s.log.Debug().Str("connection_id", connectionID).Msg("connection deactivated")
	}
	return changed
}

// ListActiveByMeeting returns a snapshot of the meeting's active connections in no particular order.
func (s *Service) ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Connection, error) {
	if meetingID == "" {
		return nil, fmt.Errorf("list active: empty meeting id: %w", ErrInvalidArgument)
	}
	conns, err := s.repo.ListActive(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list active meeting %s: %w", meetingID, err)
	}
	active := conns[:0]
	for _, c := range conns {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// Bind attaches a meeting and participant to an active connection that was
// registered without them. Fields that are already set are left alone.
func (s *Service) Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	if connectionID == "" {
		return models.Connection{}, fmt.Errorf("bind: empty connection id: %w", ErrInvalidArgument)
	}
	conn, err := s.repo.Bind(ctx, connectionID, meetingID, participantID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, fmt.Errorf("bind %s: %w", connectionID, ErrNotFound)
	}
	if err != nil {
		return models.Connection{}, fmt.Errorf("bind %s: %w", connectionID, err)
	}
	return conn, nil
}

// Get returns a connection whatever its active flag.
func (s *Service) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	conn, err := s.repo.Get(ctx, connectionID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, fmt.Errorf("get %s: %w", connectionID, ErrNotFound)
	}
	return conn, err
}
