package repositories

import (
	"context"
	"sort"
	"sync"

	"meeting-chat/internal/models"
)

// MemoryConnectionRepo keeps connections in process memory.
type MemoryConnectionRepo struct {
	mu    sync.RWMutex
	conns map[string]models.Connection
}

// NewMemoryConnectionRepo creates an empty in-memory connection store.
func NewMemoryConnectionRepo() *MemoryConnectionRepo {
	return &MemoryConnectionRepo{conns: make(map[string]models.Connection)}
}

func (r *MemoryConnectionRepo) Save(ctx context.Context, conn models.Connection) (models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn.ID]; ok {
		return models.Connection{}, ErrConnectionExists
	}
	r.conns[conn.ID] = conn
	return conn, nil
}

func (r *MemoryConnectionRepo) Get(ctx context.Context, connectionID string) (models.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connectionID]
	if !ok {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, nil
}

func (r *MemoryConnectionRepo) ListActive(ctx context.Context, meetingID string) ([]models.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := []models.Connection{}
	for _, conn := range r.conns {
		if conn.Active && conn.MeetingID == meetingID {
			conns = append(conns, conn)
		}
	}
	return conns, nil
}

func (r *MemoryConnectionRepo) Deactivate(ctx context.Context, connectionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	if !ok || !conn.Active {
		return false, nil
	}
	conn.Active = false
	r.conns[connectionID] = conn
	return true, nil
}

func (r *MemoryConnectionRepo) Bind(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	if !ok || !conn.Active {
		return models.Connection{}, ErrConnectionNotFound
	}
	if conn.MeetingID == "" {
		conn.MeetingID = meetingID
	}
	if conn.ParticipantID == "" {
		conn.ParticipantID = participantID
	}
	r.conns[connectionID] = conn
	return conn, nil
}

// MemoryMessageRepo keeps messages in process memory.
type MemoryMessageRepo struct {
	mu   sync.RWMutex
	msgs map[string]models.Message
}

// NewMemoryMessageRepo creates an empty in-memory message store.
func NewMemoryMessageRepo() *MemoryMessageRepo {
	return &MemoryMessageRepo{msgs: make(map[string]models.Message)}
}

func (r *MemoryMessageRepo) Save(ctx context.Context, msg models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[msg.ID]; ok {
		return models.Message{}, ErrMessageExists
	}
	r.msgs[msg.ID] = msg
	return msg, nil
}

func (r *MemoryMessageRepo) Get(ctx context.Context, messageID string) (models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.msgs[messageID]
	if !ok {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, nil
}

func (r *MemoryMessageRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := []models.Message{}
	for _, msg := range r.msgs {
		if msg.Active && msg.MeetingID == meetingID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

var _ ConnectionRepository = (*ConnectionRepo)(nil)
var _ ConnectionRepository = (*MemoryConnectionRepo)(nil)
var _ MessageRepository = (*MessageRepo)(nil)
var _ MessageRepository = (*MemoryMessageRepo)(nil)
