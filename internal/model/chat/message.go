package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem is accepted by the completion provider but never persisted.
	RoleSystem Role = "system"
)

// Valid reports whether the role is one the completion provider accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is an append-only turn within a session. AgentID is nil for
// user-authored messages and set to the responding agent otherwise.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentID   *string   `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is the projection returned by the message listing.
type Transcript struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentID   *string   `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript projects the message for listings.
func (m Message) Transcript() Transcript {
	return Transcript{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		AgentID:   m.AgentID,
		CreatedAt: m.CreatedAt,
	}
}

// Reply is the projection returned by the chat endpoint.
type Reply struct {
	ID      string  `json:"id"`
	Role    Role    `json:"role"`
	Content string  `json:"content"`
	AgentID *string `json:"agent_id"`
}

// Reply projects an assistant message for the chat response.
func (m Message) Reply() Reply {
	return Reply{ID: m.ID, Role: m.Role, Content: m.Content, AgentID: m.AgentID}
}
