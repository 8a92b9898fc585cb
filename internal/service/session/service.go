package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence surface the session service needs.
type Store interface {
	ListSessions(ctx context.Context, userID string) ([]chat.Session, error)
	CreateSession(ctx context.Context, userID, title string) (chat.Session, error)
	SessionOwned(ctx context.Context, sessionID, userID string) (bool, error)
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Service manages a user's sessions and guards session-scoped access.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a session service backed by store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the user's sessions, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]chat.Session, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	s.logger.DebugContext(ctx, "listed sessions", "user_id", userID, "rows", len(sessions))
	return sessions, nil
}

// Create starts a new session with the default title.
func (s *Service) Create(ctx context.Context, userID string) (chat.Session, error) {
	session, err := s.store.CreateSession(ctx, userID, chat.DefaultSessionTitle)
	if err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.DebugContext(ctx, "created session", "session_id", session.ID, "user_id", userID)
	return session, nil
}

// IsOwned reports whether sessionID exists and belongs to userID. A false
// result with a nil error means "not found" to the caller; errors are store
// failures.
func (s *Service) IsOwned(ctx context.Context, sessionID, userID string) (bool, error) {
	if sessionID == "" || userID == "" {
		return false, nil
	}
	owned, err := s.store.SessionOwned(ctx, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("check session owner: %w", err)
	}
	return owned, nil
}

// Messages returns the session transcript, oldest first. It fails with
// ErrSessionNotFound when the caller does not own the session.
func (s *Service) Messages(ctx context.Context, sessionID, userID string) ([]chat.Message, error) {
	owned, err := s.IsOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrSessionNotFound
	}

	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	s.logger.DebugContext(ctx, "listed messages", "session_id", sessionID, "rows", len(messages))
	return messages, nil
}
