package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

// PostgresStore implements Repository directly against the Postgres database
// behind Supabase (or any database with the same schema). Row-level security
// is bypassed, so every query scopes by owner explicitly.
//
// Identifiers are compared as text so that non-UUID input is reported as
// "not found" rather than a cast error.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to databaseURL and verifies it.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		select id::text, name, coalesce(role_description, ''), system_prompt, coalesce(color_hex, '')
		from agents`)
	if err != nil {
		return nil, errors.Wrap(err, "query agents")
	}
	defer rows.Close()

	agents := make([]agent.Agent, 0)
	for rows.Next() {
		var a agent.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.RoleDescription, &a.SystemPrompt, &a.ColorHex); err != nil {
			return nil, errors.Wrap(err, "scan agent")
		}
		agents = append(agents, a)
	}
	return agents, errors.Wrap(rows.Err(), "iterate agents")
}

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (agent.Agent, error) {
	var a agent.Agent
	err := s.pool.QueryRow(ctx, `
		select id::text, name, coalesce(role_description, ''), system_prompt, coalesce(color_hex, '')
		from agents where id::text = $1 limit 1`, id,
	).Scan(&a.ID, &a.Name, &a.RoleDescription, &a.SystemPrompt, &a.ColorHex)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Agent{}, errors.Wrapf(ErrNotFound, "agent %s", id)
	}
	if err != nil {
		return agent.Agent{}, errors.Wrap(err, "scan agent")
	}
	return a, nil
}

func (s *PostgresStore) UpsertAgents(ctx context.Context, agents []agent.Agent) error {
	batch := &pgx.Batch{}
	for _, a := range agents {
		batch.Queue(`
			insert into agents (id, name, role_description, system_prompt, color_hex)
			values ($1, $2, $3, $4, $5)
			on conflict (id) do update set
				name = excluded.name,
				role_description = excluded.role_description,
				system_prompt = excluded.system_prompt,
				color_hex = excluded.color_hex`,
			a.ID, a.Name, a.RoleDescription, a.SystemPrompt, a.ColorHex)
	}
	return errors.Wrap(s.pool.SendBatch(ctx, batch).Close(), "upsert agents")
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	rows, err := s.pool.Query(ctx, `
		select id::text, title, user_id::text, created_at, updated_at
		from sessions
		where user_id::text = $1
		order by updated_at desc`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query sessions")
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0)
	for rows.Next() {
		var session chat.Session
		if err := rows.Scan(&session.ID, &session.Title, &session.UserID, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		sessions = append(sessions, session)
	}
	return sessions, errors.Wrap(rows.Err(), "iterate sessions")
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, title string) (chat.Session, error) {
	var session chat.Session
	err := s.pool.QueryRow(ctx, `
		insert into sessions (title, user_id)
		values ($1, $2)
		returning id::text, title, user_id::text, created_at, updated_at`,
		title, userID,
	).Scan(&session.ID, &session.Title, &session.UserID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return chat.Session{}, errors.Wrap(err, "insert session")
	}
	return session, nil
}

func (s *PostgresStore) SessionOwned(ctx context.Context, sessionID, userID string) (bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		select id::text from sessions
		where id::text = $1 and user_id::text = $2
		limit 1`, sessionID, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "query session owner")
	}
	return true, nil
}

func (s *PostgresStore) TouchSession(ctx context.Context, sessionID, userID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		update sessions set updated_at = $3
		where id::text = $1 and user_id::text = $2`,
		sessionID, userID, at.UTC())
	return errors.Wrap(err, "update session updated_at")
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.queryMessages(ctx, `
		select id::text, session_id::text, role, content, agent_id::text, created_at
		from messages
		where session_id::text = $1
		order by created_at asc`, sessionID)
}

func (s *PostgresStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	return s.queryMessages(ctx, `
		select id::text, session_id::text, role, content, agent_id::text, created_at
		from messages
		where session_id::text = $1
		order by created_at desc
		limit $2`, sessionID, limitArg)
}

func (s *PostgresStore) InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	err := s.pool.QueryRow(ctx, `
		insert into messages (session_id, role, content, agent_id)
		values ($1, $2, $3, $4)
		returning id::text, created_at`,
		msg.SessionID, string(msg.Role), msg.Content, msg.AgentID,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "insert message")
	}
	return msg, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg  chat.Message
			role string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.AgentID, &msg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msg.Role = chat.Role(role)
		messages = append(messages, msg)
	}
	return messages, errors.Wrap(rows.Err(), "iterate messages")
}
