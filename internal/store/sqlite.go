package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLiteStore implements Repository using SQLite, for single-node
// deployments without Supabase.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath and ensures the
// schema exists.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := MemoryDSN
	if dbPath != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if dbPath == MemoryDSN {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initialize schema")
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role_description TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL,
		color_hex TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		agent_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(err, "create schema")
	}
	return nil
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role_description, system_prompt, color_hex
		FROM agents ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "query agents")
	}
	defer rows.Close()

	agents := make([]agent.Agent, 0)
	for rows.Next() {
		var a agent.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.RoleDescription, &a.SystemPrompt, &a.ColorHex); err != nil {
			return nil, errors.Wrap(err, "scan agent row")
		}
		agents = append(agents, a)
	}
	return agents, errors.Wrap(rows.Err(), "iterate agents")
}

func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (agent.Agent, error) {
	var a agent.Agent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role_description, system_prompt, color_hex
		FROM agents WHERE id = ? LIMIT 1`, id,
	).Scan(&a.ID, &a.Name, &a.RoleDescription, &a.SystemPrompt, &a.ColorHex)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Agent{}, errors.Wrapf(ErrNotFound, "agent %s", id)
	}
	if err != nil {
		return agent.Agent{}, errors.Wrap(err, "scan agent row")
	}
	return a, nil
}

func (s *SQLiteStore) UpsertAgents(ctx context.Context, agents []agent.Agent) error {
	query := `
	INSERT INTO agents (id, name, role_description, system_prompt, color_hex)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		role_description = excluded.role_description,
		system_prompt = excluded.system_prompt,
		color_hex = excluded.color_hex`

	for _, a := range agents {
		if _, err := s.db.ExecContext(ctx, query, a.ID, a.Name, a.RoleDescription, a.SystemPrompt, a.ColorHex); err != nil {
			return errors.Wrapf(err, "upsert agent %s", a.ID)
		}
	}
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, user_id, created_at, updated_at
		FROM sessions WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query sessions")
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0)
	for rows.Next() {
		var (
			session              chat.Session
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&session.ID, &session.Title, &session.UserID, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scan session row")
		}
		session.CreatedAt = time.Unix(0, createdAt).UTC()
		session.UpdatedAt = time.Unix(0, updatedAt).UTC()
		sessions = append(sessions, session)
	}
	return sessions, errors.Wrap(rows.Err(), "iterate sessions")
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID, title string) (chat.Session, error) {
	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.UserID, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return chat.Session{}, errors.Wrap(err, "insert session")
	}
	return session, nil
}

func (s *SQLiteStore) SessionOwned(ctx context.Context, sessionID, userID string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions WHERE id = ? AND user_id = ? LIMIT 1`,
		sessionID, userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "query session owner")
	}
	return true, nil
}

func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID, userID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ? AND user_id = ?`,
		at.UTC().UnixNano(), sessionID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "update session updated_at")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}
	if rows == 0 {
		slog.Warn("TouchSession affected 0 rows", "session_id", sessionID, "user_id", userID)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, session_id, role, content, agent_id, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC`, sessionID)
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryMessages(ctx, `
		SELECT id, session_id, role, content, agent_id, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, sessionID, limit)
}

func (s *SQLiteStore) InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	var agentID sql.NullString
	if msg.AgentID != nil {
		agentID = sql.NullString{String: *msg.AgentID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, agentID, msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "insert message")
	}
	return msg, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg       chat.Message
			role      string
			agentID   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &agentID, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan message row")
		}
		msg.Role = chat.Role(role)
		if agentID.Valid {
			id := agentID.String
			msg.AgentID = &id
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, errors.Wrap(rows.Err(), "iterate messages")
}
