package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/ai"
	chatService "github.com/zhouzirui/boardroom/backend/internal/service/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/session"
	"github.com/zhouzirui/boardroom/backend/internal/store"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	history [][]chat.Message
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []chat.Message) (ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, systemPrompt)
	f.history = append(f.history, history)
	if f.err != nil {
		return ai.Completion{}, f.err
	}
	return ai.Completion{Content: f.reply, TotalTokens: 7}, nil
}

type fixture struct {
	repo      *store.MemoryStore
	sessions  *session.Service
	completer *fakeCompleter
	svc       *chatService.Service
	session   chat.Session
}

func newFixture(t *testing.T, opts chatService.Options) fixture {
	t.Helper()
	repo := store.NewMemory([]agent.Agent{{
		ID:              "agent-1",
		Name:            "Senior Architect",
		RoleDescription: "System design",
		SystemPrompt:    "You are an architect",
		ColorHex:        "#3B82F6",
	}})
	sessions := session.NewService(repo, nil)
	completer := &fakeCompleter{reply: "Generated response"}

	created, err := sessions.Create(context.Background(), "user-1")
	require.NoError(t, err)

	return fixture{
		repo:      repo,
		sessions:  sessions,
		completer: completer,
		svc:       chatService.NewService(repo, sessions, completer, opts),
		session:   created,
	}
}

func (f fixture) transcript(t *testing.T) []chat.Message {
	t.Helper()
	messages, err := f.repo.ListMessages(context.Background(), f.session.ID)
	require.NoError(t, err)
	return messages
}

func TestChatPersistsBothTurns(t *testing.T) {
	touched := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	f := newFixture(t, chatService.Options{Now: func() time.Time { return touched }})

	reply, err := f.svc.Chat(context.Background(), chatService.Request{
		SessionID: f.session.ID,
		AgentID:   "agent-1",
		Message:   "hello",
		UserID:    "user-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, chat.RoleAssistant, reply.Role)
	assert.Equal(t, "Generated response", reply.Content)
	require.NotNil(t, reply.AgentID)
	assert.Equal(t, "agent-1", *reply.AgentID)

	messages := f.transcript(t)
	require.Len(t, messages, 2)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Nil(t, messages[0].AgentID)
	assert.Equal(t, chat.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Generated response", messages[1].Content)

	require.Len(t, f.completer.prompts, 1)
	assert.Equal(t, "You are an architect", f.completer.prompts[0])
	require.Len(t, f.completer.history[0], 1)
	assert.Equal(t, "hello", f.completer.history[0][0].Content)

	sessions, err := f.sessions.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, sessions[0].UpdatedAt.Equal(touched))
}

func TestChatBoundsContextWindow(t *testing.T) {
	f := newFixture(t, chatService.Options{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := f.repo.InsertMessage(ctx, chat.Message{SessionID: f.session.ID, Role: chat.RoleUser, Content: fmt.Sprintf("m%02d", i)})
		require.NoError(t, err)
	}

	_, err := f.svc.Chat(ctx, chatService.Request{SessionID: f.session.ID, AgentID: "agent-1", Message: "latest", UserID: "user-1"})
	require.NoError(t, err)

	history := f.completer.history[0]
	require.Len(t, history, chatService.DefaultHistoryLimit)
	for i := 0; i < 7; i++ {
		assert.Equal(t, fmt.Sprintf("m%02d", 13+i), history[i].Content)
	}
	assert.Equal(t, "latest", history[7].Content)
}

func TestChatHonoursConfiguredHistoryLimit(t *testing.T) {
	f := newFixture(t, chatService.Options{HistoryLimit: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.repo.InsertMessage(ctx, chat.Message{SessionID: f.session.ID, Role: chat.RoleUser, Content: "x"})
		require.NoError(t, err)
	}

	_, err := f.svc.Chat(ctx, chatService.Request{SessionID: f.session.ID, AgentID: "agent-1", Message: "latest", UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, f.completer.history[0], 3)
}

func TestChatMissingAgentKeepsUserMessage(t *testing.T) {
	f := newFixture(t, chatService.Options{})

	_, err := f.svc.Chat(context.Background(), chatService.Request{
		SessionID: f.session.ID,
		AgentID:   "agent-404",
		Message:   "hello",
		UserID:    "user-1",
	})
	assert.ErrorIs(t, err, chatService.ErrAgentNotFound)

	messages := f.transcript(t)
	require.Len(t, messages, 1)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Empty(t, f.completer.prompts)
}

func TestChatCompletionFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t, chatService.Options{})
	f.completer.err = errors.New("upstream 502")

	_, err := f.svc.Chat(context.Background(), chatService.Request{
		SessionID: f.session.ID,
		AgentID:   "agent-1",
		Message:   "hello",
		UserID:    "user-1",
	})
	assert.ErrorIs(t, err, chatService.ErrCompletionFailed)
	assert.Len(t, f.transcript(t), 1)
}

func TestChatRejectsBeforePersisting(t *testing.T) {
	f := newFixture(t, chatService.Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  chatService.Request
		want error
	}{
		{"missing session", chatService.Request{AgentID: "agent-1", Message: "hi", UserID: "user-1"}, chatService.ErrInvalidRequest},
		{"missing agent", chatService.Request{SessionID: f.session.ID, Message: "hi", UserID: "user-1"}, chatService.ErrInvalidRequest},
		{"blank message", chatService.Request{SessionID: f.session.ID, AgentID: "agent-1", Message: "  \n", UserID: "user-1"}, chatService.ErrInvalidRequest},
		{"foreign session", chatService.Request{SessionID: f.session.ID, AgentID: "agent-1", Message: "hi", UserID: "user-2"}, chatService.ErrSessionNotFound},
		{"unknown session", chatService.Request{SessionID: "nope", AgentID: "agent-1", Message: "hi", UserID: "user-1"}, chatService.ErrSessionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Chat(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.transcript(t))
}

type overlapCompleter struct {
	active  atomic.Int32
	overlap atomic.Bool
}

func (c *overlapCompleter) Complete(context.Context, string, []chat.Message) (ai.Completion, error) {
	if c.active.Add(1) > 1 {
		c.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	c.active.Add(-1)
	return ai.Completion{Content: "ok"}, nil
}

func TestChatSerializesSameSession(t *testing.T) {
	f := newFixture(t, chatService.Options{})
	completer := &overlapCompleter{}
	svc := chatService.NewService(f.repo, f.sessions, completer, chatService.Options{SerializeSessions: true})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Chat(context.Background(), chatService.Request{
				SessionID: f.session.ID,
				AgentID:   "agent-1",
				Message:   "hi",
				UserID:    "user-1",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, completer.overlap.Load())
	assert.Len(t, f.transcript(t), 12)
}
