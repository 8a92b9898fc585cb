// Package store persists sessions, messages and agents. Every driver
// mediates access to an external relational store except the in-memory one,
// which exists for local development and tests.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// Repository defines the persistence operations the API needs.
type Repository interface {
	agent.Store

	// ListSessions returns the sessions owned by userID, most recently
	// updated first.
	ListSessions(ctx context.Context, userID string) ([]chat.Session, error)

	// CreateSession inserts a session owned by userID and returns the stored row.
	CreateSession(ctx context.Context, userID, title string) (chat.Session, error)

	// SessionOwned reports whether a session with sessionID owned by userID exists.
	SessionOwned(ctx context.Context, sessionID, userID string) (bool, error)

	// TouchSession sets updated_at on the session scoped to its owner.
	TouchSession(ctx context.Context, sessionID, userID string, at time.Time) error

	// ListMessages returns every message of a session, oldest first.
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)

	// RecentMessages returns at most limit messages of a session, newest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)

	// InsertMessage appends a message and returns the stored row.
	InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error)

	// UpsertAgents creates or replaces agents by id.
	UpsertAgents(ctx context.Context, agents []agent.Agent) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
