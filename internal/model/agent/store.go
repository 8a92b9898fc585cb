package agent

import "context"

// Store exposes agent retrieval for handlers and the chat workflow.
type Store interface {
	ListAgents(ctx context.Context) ([]Agent, error)
	// GetAgent returns store.ErrNotFound (wrapped) when no agent matches.
	GetAgent(ctx context.Context, id string) (Agent, error)
}
