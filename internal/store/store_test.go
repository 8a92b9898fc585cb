package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
)

func drivers(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLite(MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, sqlite.UpsertAgents(context.Background(), agent.Seed()))
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		DriverMemory: NewMemory(agent.Seed()),
		DriverSQLite: sqlite,
	}
}

func TestRepositoryAgents(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			agents, err := repo.ListAgents(ctx)
			require.NoError(t, err)
			assert.Len(t, agents, len(agent.Seed()))

			got, err := repo.GetAgent(ctx, "agent-1")
			require.NoError(t, err)
			assert.Equal(t, "Senior Architect", got.Name)
			assert.NotEmpty(t, got.SystemPrompt)

			_, err = repo.GetAgent(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			updated := got
			updated.Name = "Chief Architect"
			require.NoError(t, repo.UpsertAgents(ctx, []agent.Agent{updated, {
				ID:           "agent-9",
				Name:         "Legal Counsel",
				SystemPrompt: "You are legal counsel.",
			}}))

			got, err = repo.GetAgent(ctx, "agent-1")
			require.NoError(t, err)
			assert.Equal(t, "Chief Architect", got.Name)

			agents, err = repo.ListAgents(ctx)
			require.NoError(t, err)
			assert.Len(t, agents, len(agent.Seed())+1)
		})
	}
}

func TestRepositorySessionsAreScopedToOwner(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := repo.CreateSession(ctx, "user-a", chat.DefaultSessionTitle)
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.Equal(t, "user-a", first.UserID)
			assert.Equal(t, chat.DefaultSessionTitle, first.Title)
			assert.False(t, first.CreatedAt.IsZero())

			second, err := repo.CreateSession(ctx, "user-a", chat.DefaultSessionTitle)
			require.NoError(t, err)
			_, err = repo.CreateSession(ctx, "user-b", chat.DefaultSessionTitle)
			require.NoError(t, err)

			base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
			require.NoError(t, repo.TouchSession(ctx, second.ID, "user-a", base))
			require.NoError(t, repo.TouchSession(ctx, first.ID, "user-a", base.Add(time.Minute)))

			listed, err := repo.ListSessions(ctx, "user-a")
			require.NoError(t, err)
			require.Len(t, listed, 2)
			assert.Equal(t, first.ID, listed[0].ID)
			assert.Equal(t, second.ID, listed[1].ID)
			assert.True(t, listed[0].UpdatedAt.Equal(base.Add(time.Minute)))

			again, err := repo.ListSessions(ctx, "user-a")
			require.NoError(t, err)
			assert.Equal(t, listed, again)

			owned, err := repo.SessionOwned(ctx, first.ID, "user-a")
			require.NoError(t, err)
			assert.True(t, owned)

			owned, err = repo.SessionOwned(ctx, first.ID, "user-b")
			require.NoError(t, err)
			assert.False(t, owned)

			owned, err = repo.SessionOwned(ctx, "no-such-session", "user-a")
			require.NoError(t, err)
			assert.False(t, owned)

			// Touch by a non-owner is a no-op.
			require.NoError(t, repo.TouchSession(ctx, first.ID, "user-b", base.Add(time.Hour)))
			listed, err = repo.ListSessions(ctx, "user-a")
			require.NoError(t, err)
			assert.True(t, listed[0].UpdatedAt.Equal(base.Add(time.Minute)))
		})
	}
}

func TestRepositoryMessages(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			session, err := repo.CreateSession(ctx, "user-a", chat.DefaultSessionTitle)
			require.NoError(t, err)

			agentID := "agent-1"
			for i := 0; i < 10; i++ {
				msg := chat.Message{SessionID: session.ID, Role: chat.RoleUser, Content: fmt.Sprintf("m%d", i)}
				if i%2 == 1 {
					msg.Role = chat.RoleAssistant
					msg.AgentID = &agentID
				}
				stored, err := repo.InsertMessage(ctx, msg)
				require.NoError(t, err)
				assert.NotEmpty(t, stored.ID)
				assert.Equal(t, msg.Content, stored.Content)
			}

			all, err := repo.ListMessages(ctx, session.ID)
			require.NoError(t, err)
			require.Len(t, all, 10)
			for i, msg := range all {
				assert.Equal(t, fmt.Sprintf("m%d", i), msg.Content)
			}
			assert.Nil(t, all[0].AgentID)
			require.NotNil(t, all[1].AgentID)
			assert.Equal(t, "agent-1", *all[1].AgentID)
			assert.Equal(t, chat.RoleAssistant, all[1].Role)

			recent, err := repo.RecentMessages(ctx, session.ID, 3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, "m9", recent[0].Content)
			assert.Equal(t, "m7", recent[2].Content)

			unbounded, err := repo.RecentMessages(ctx, session.ID, 0)
			require.NoError(t, err)
			assert.Len(t, unbounded, 10)

			empty, err := repo.ListMessages(ctx, "other-session")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	agents, err := repo.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, len(agent.Seed()))

	repo, err = Open(ctx, Options{Driver: DriverSQLite, SQLitePath: MemoryDSN})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(ctx))
	agents, err = repo.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, len(agent.Seed()))

	_, err = Open(ctx, Options{Driver: DriverSupabase})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: "mongo"})
	assert.Error(t, err)
}
