package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

// MemoryStore implements Repository with in-process maps, suitable for local
// development and tests. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	agents   []agent.Agent
	sessions []chat.Session
	messages []chat.Message
}

// NewMemory returns a MemoryStore preloaded with the supplied agents.
func NewMemory(agents []agent.Agent) *MemoryStore {
	return &MemoryStore{
		now:    func() time.Time { return time.Now().UTC() },
		agents: append([]agent.Agent(nil), agents...),
	}
}

// ListAgents returns all agents in insertion order.
func (s *MemoryStore) ListAgents(_ context.Context) ([]agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]agent.Agent{}, s.agents...), nil
}

// GetAgent looks up an agent by identifier.
func (s *MemoryStore) GetAgent(_ context.Context, id string) (agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.agents {
		if item.ID == id {
			return item, nil
		}
	}
	return agent.Agent{}, errors.Wrapf(ErrNotFound, "agent %s", id)
}

// UpsertAgents replaces agents with matching ids and appends the rest.
func (s *MemoryStore) UpsertAgents(_ context.Context, agents []agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range agents {
		_, idx, found := lo.FindIndexOf(s.agents, func(item agent.Agent) bool { return item.ID == a.ID })
		if found {
			s.agents[idx] = a
			continue
		}
		s.agents = append(s.agents, a)
	}
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]chat.Session, error) {
	s.mu.RLock()
	owned := lo.Filter(s.sessions, func(item chat.Session, _ int) bool { return item.UserID == userID })
	s.mu.RUnlock()

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].UpdatedAt.After(owned[j].UpdatedAt)
	})
	return owned, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, userID, title string) (chat.Session, error) {
	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, session)
	s.mu.Unlock()

	return session, nil
}

func (s *MemoryStore) SessionOwned(_ context.Context, sessionID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.ContainsBy(s.sessions, func(item chat.Session) bool {
		return item.ID == sessionID && item.UserID == userID
	}), nil
}

func (s *MemoryStore) TouchSession(_ context.Context, sessionID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID && s.sessions[i].UserID == userID {
			s.sessions[i].UpdatedAt = at.UTC()
		}
	}
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript(sessionID), nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	transcript := s.transcript(sessionID)
	s.mu.RUnlock()

	if limit > 0 && len(transcript) > limit {
		transcript = transcript[len(transcript)-limit:]
	}
	return lo.Reverse(transcript), nil
}

func (s *MemoryStore) InsertMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now()

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// transcript returns a copy of the session's messages ordered by created_at;
// insertion order breaks ties. Callers must hold s.mu.
func (s *MemoryStore) transcript(sessionID string) []chat.Message {
	out := lo.Filter(s.messages, func(item chat.Message, _ int) bool { return item.SessionID == sessionID })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
