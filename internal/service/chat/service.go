package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/ai"
	"github.com/zhouzirui/boardroom/backend/internal/store"
)

var (
	ErrInvalidRequest   = errors.New("session_id, agent_id, and message are required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrAgentNotFound    = errors.New("agent not found")
	ErrUpstream         = errors.New("store request failed")
	ErrCompletionFailed = errors.New("completion request failed")
)

// DefaultHistoryLimit is the number of most recent messages sent as context.
const DefaultHistoryLimit = 8

// Store is the persistence surface the chat workflow needs.
type Store interface {
	agent.Store
	InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
	TouchSession(ctx context.Context, sessionID, userID string, at time.Time) error
}

// OwnershipGuard decides whether a caller may act on a session.
type OwnershipGuard interface {
	IsOwned(ctx context.Context, sessionID, userID string) (bool, error)
}

// Completer produces the assistant reply for a system prompt and a
// chronological history.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []chat.Message) (ai.Completion, error)
}

// Options tunes the workflow. Zero values select the defaults.
type Options struct {
	HistoryLimit      int
	SerializeSessions bool
	Logger            *slog.Logger
	Now               func() time.Time
}

// Request is one user turn addressed to an agent.
type Request struct {
	SessionID string
	AgentID   string
	Message   string
	UserID    string
}

// Service runs a chat exchange: persist the user turn, build context, ask
// the model, persist the reply and bump the session.
type Service struct {
	store        Store
	guard        OwnershipGuard
	completer    Completer
	historyLimit int
	locks        *keyedMutex
	logger       *slog.Logger
	now          func() time.Time
}

// NewService wires the chat workflow.
func NewService(st Store, guard OwnershipGuard, completer Completer, opts Options) *Service {
	svc := &Service{
		store:        st,
		guard:        guard,
		completer:    completer,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if svc.historyLimit < 1 {
		svc.historyLimit = DefaultHistoryLimit
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	if opts.SerializeSessions {
		svc.locks = newKeyedMutex()
	}
	return svc
}

// Chat executes one exchange and returns the persisted assistant message.
//
// The steps are not transactional. A failure after the user message is
// stored leaves that message in place.
func (s *Service) Chat(ctx context.Context, req Request) (chat.Message, error) {
	if req.SessionID == "" || req.AgentID == "" || strings.TrimSpace(req.Message) == "" {
		return chat.Message{}, ErrInvalidRequest
	}

	log := s.logger.With("session_id", req.SessionID, "agent_id", req.AgentID)
	log.InfoContext(ctx, "chat request", "msg_len", len(req.Message))

	owned, err := s.guard.IsOwned(ctx, req.SessionID, req.UserID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !owned {
		return chat.Message{}, ErrSessionNotFound
	}

	if s.locks != nil {
		unlock := s.locks.Lock(req.SessionID)
		defer unlock()
	}

	if _, err := s.store.InsertMessage(ctx, chat.Message{
		SessionID: req.SessionID,
		Role:      chat.RoleUser,
		Content:   req.Message,
	}); err != nil {
		return chat.Message{}, fmt.Errorf("%w: persist user message: %v", ErrUpstream, err)
	}
	log.DebugContext(ctx, "user message persisted")

	persona, err := s.store.GetAgent(ctx, req.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		log.WarnContext(ctx, "agent not found; user message left without reply")
		return chat.Message{}, ErrAgentNotFound
	}
	if err != nil {
		s.orphaned(ctx, log, "resolve agent", err)
		return chat.Message{}, fmt.Errorf("%w: resolve agent: %v", ErrUpstream, err)
	}
	log.DebugContext(ctx, "using agent", "agent", persona.Name)

	recent, err := s.store.RecentMessages(ctx, req.SessionID, s.historyLimit)
	if err != nil {
		s.orphaned(ctx, log, "load history", err)
		return chat.Message{}, fmt.Errorf("%w: load history: %v", ErrUpstream, err)
	}
	history := lo.Reverse(recent)
	log.DebugContext(ctx, "context window", "messages", len(history))

	completion, err := s.completer.Complete(ctx, persona.SystemPrompt, history)
	if err != nil {
		s.orphaned(ctx, log, "completion", err)
		return chat.Message{}, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	agentID := req.AgentID
	reply, err := s.store.InsertMessage(ctx, chat.Message{
		SessionID: req.SessionID,
		Role:      chat.RoleAssistant,
		Content:   completion.Content,
		AgentID:   &agentID,
	})
	if err != nil {
		s.orphaned(ctx, log, "persist reply", err)
		return chat.Message{}, fmt.Errorf("%w: persist assistant message: %v", ErrUpstream, err)
	}
	log.DebugContext(ctx, "assistant message persisted", "message_id", reply.ID)

	if err := s.store.TouchSession(ctx, req.SessionID, req.UserID, s.now()); err != nil {
		return chat.Message{}, fmt.Errorf("%w: touch session: %v", ErrUpstream, err)
	}

	reply.Role = chat.RoleAssistant
	reply.Content = completion.Content
	reply.AgentID = &agentID
	return reply, nil
}

func (s *Service) orphaned(ctx context.Context, log *slog.Logger, step string, err error) {
	log.WarnContext(ctx, "chat failed after user message was persisted", "step", step, "error", err)
}
