package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	postgrest "github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

const (
	agentsTable   = "agents"
	sessionsTable = "sessions"
	messagesTable = "messages"
)

// SupabaseStore implements Repository through the Supabase REST (PostgREST)
// interface. It expects a service-role key; with a publishable key row-level
// security hides every row.
//
// The REST client carries no context, so ctx is accepted for interface
// symmetry only.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabase wraps an initialised Supabase client.
func NewSupabase(client *supabase.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

type sessionRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r sessionRow) session() chat.Session {
	return chat.Session{
		ID:        r.ID,
		Title:     r.Title,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type messageRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AgentID   *string   `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r messageRow) message() chat.Message {
	return chat.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		AgentID:   r.AgentID,
		CreatedAt: r.CreatedAt,
	}
}

func (s *SupabaseStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	_ = ctx
	var result []agent.Agent
	_, err := s.client.From(agentsTable).Select("*", "", false).ExecuteTo(&result)
	if err != nil {
		return nil, errors.Wrap(err, "select agents")
	}
	if result == nil {
		result = []agent.Agent{}
	}
	return result, nil
}

func (s *SupabaseStore) GetAgent(ctx context.Context, id string) (agent.Agent, error) {
	_ = ctx
	var result []agent.Agent
	_, err := s.client.From(agentsTable).
		Select("id,name,role_description,system_prompt,color_hex", "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&result)
	if err != nil {
		return agent.Agent{}, errors.Wrap(err, "select agent")
	}
	if len(result) == 0 {
		return agent.Agent{}, errors.Wrapf(ErrNotFound, "agent %s", id)
	}
	return result[0], nil
}

func (s *SupabaseStore) UpsertAgents(ctx context.Context, agents []agent.Agent) error {
	_ = ctx
	if len(agents) == 0 {
		return nil
	}
	payload := lo.Map(agents, func(a agent.Agent, _ int) map[string]any {
		return map[string]any{
			"id":               a.ID,
			"name":             a.Name,
			"role_description": a.RoleDescription,
			"system_prompt":    a.SystemPrompt,
			"color_hex":        a.ColorHex,
		}
	})
	_, _, err := s.client.From(agentsTable).Upsert(payload, "id", "minimal", "").Execute()
	return errors.Wrap(err, "upsert agents")
}

func (s *SupabaseStore) ListSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	_ = ctx
	var rows []sessionRow
	_, err := s.client.From(sessionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.Wrap(err, "select sessions")
	}
	return lo.Map(rows, func(r sessionRow, _ int) chat.Session { return r.session() }), nil
}

func (s *SupabaseStore) CreateSession(ctx context.Context, userID, title string) (chat.Session, error) {
	_ = ctx
	var rows []sessionRow
	payload := map[string]any{"title": title, "user_id": userID}
	_, err := s.client.From(sessionsTable).Insert(payload, false, "", "representation", "").ExecuteTo(&rows)
	if err != nil {
		return chat.Session{}, errors.Wrap(err, "insert session")
	}
	if len(rows) == 0 {
		return chat.Session{}, errors.New("insert session: no row returned")
	}
	return rows[0].session(), nil
}

func (s *SupabaseStore) SessionOwned(ctx context.Context, sessionID, userID string) (bool, error) {
	_ = ctx
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := s.client.From(sessionsTable).
		Select("id", "", false).
		Eq("id", sessionID).
		Eq("user_id", userID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return false, errors.Wrap(err, "select session owner")
	}
	return len(rows) == 1, nil
}

func (s *SupabaseStore) TouchSession(ctx context.Context, sessionID, userID string, at time.Time) error {
	_ = ctx
	payload := map[string]any{"updated_at": at.UTC().Format(time.RFC3339Nano)}
	_, _, err := s.client.From(sessionsTable).
		Update(payload, "minimal", "").
		Eq("id", sessionID).
		Eq("user_id", userID).
		Execute()
	return errors.Wrap(err, "update session updated_at")
}

func (s *SupabaseStore) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	_ = ctx
	var rows []messageRow
	_, err := s.client.From(messagesTable).
		Select("*", "", false).
		Eq("session_id", sessionID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	return lo.Map(rows, func(r messageRow, _ int) chat.Message { return r.message() }), nil
}

func (s *SupabaseStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	_ = ctx
	var rows []messageRow
	query := s.client.From(messagesTable).
		Select("*", "", false).
		Eq("session_id", sessionID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if limit > 0 {
		query = query.Limit(limit, "")
	}
	if _, err := query.ExecuteTo(&rows); err != nil {
		return nil, errors.Wrap(err, "select recent messages")
	}
	return lo.Map(rows, func(r messageRow, _ int) chat.Message { return r.message() }), nil
}

func (s *SupabaseStore) InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	_ = ctx
	var rows []messageRow
	payload := map[string]any{
		"session_id": msg.SessionID,
		"role":       string(msg.Role),
		"content":    msg.Content,
		"agent_id":   msg.AgentID,
	}
	_, err := s.client.From(messagesTable).Insert(payload, false, "", "representation", "").ExecuteTo(&rows)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "insert message")
	}
	if len(rows) == 0 {
		return chat.Message{}, errors.New("insert message: no row returned")
	}
	return rows[0].message(), nil
}

// Ping performs a one-row fetch against the sessions table.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	_ = ctx
	if s == nil || s.client == nil {
		return errors.New("supabase client not initialized")
	}
	_, err := s.client.From(sessionsTable).Select("id", "", false).Limit(1, "").ExecuteTo(&[]sessionRow{})
	return errors.Wrap(err, "ping supabase")
}

func (s *SupabaseStore) Close() error { return nil }
