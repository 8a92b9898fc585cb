package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	chatService "github.com/zhouzirui/boardroom/backend/internal/service/chat"
)

type stubChatter struct {
	reply chat.Message
	err   error
	got   chatService.Request
	ctx   context.Context
}

func (s *stubChatter) Chat(ctx context.Context, req chatService.Request) (chat.Message, error) {
	s.got = req
	s.ctx = ctx
	return s.reply, s.err
}

func setupRouter(chatter Chatter) *chi.Mux {
	handler := New(chatter, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), identity.User{ID: "user-1"})))
		})
	})
	handler.RegisterRoutes(r)
	return r
}

func postChat(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatReturnsReply(t *testing.T) {
	agentID := "agent-1"
	stub := &stubChatter{reply: chat.Message{
		ID:        "m-2",
		SessionID: "s-1",
		Role:      chat.RoleAssistant,
		Content:   "Generated response",
		AgentID:   &agentID,
	}}
	r := setupRouter(stub)

	resp := postChat(r, `{"session_id":"s-1","agent_id":"agent-1","message":"hello"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	msg := body["message"]
	if msg["content"] != "Generated response" || msg["agent_id"] != "agent-1" || msg["role"] != "assistant" {
		t.Fatalf("unexpected message: %v", msg)
	}
	if _, ok := msg["session_id"]; ok {
		t.Fatal("reply should not expose session_id")
	}

	if stub.got.UserID != "user-1" || stub.got.SessionID != "s-1" || stub.got.Message != "hello" {
		t.Fatalf("unexpected request: %+v", stub.got)
	}
	if stub.ctx.Done() != nil {
		t.Fatal("chat should run with a context detached from client cancellation")
	}
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{chatService.ErrInvalidRequest, http.StatusBadRequest, "session_id, agent_id, and message are required"},
		{chatService.ErrSessionNotFound, http.StatusNotFound, "Session not found"},
		{chatService.ErrAgentNotFound, http.StatusNotFound, "Agent not found"},
		{fmt.Errorf("%w: timeout", chatService.ErrCompletionFailed), http.StatusInternalServerError, "Chat request failed"},
		{fmt.Errorf("%w: insert", chatService.ErrUpstream), http.StatusInternalServerError, "Chat request failed"},
		{errors.New("unexpected"), http.StatusInternalServerError, "Chat request failed"},
	}

	for _, tc := range cases {
		r := setupRouter(&stubChatter{err: tc.err})
		resp := postChat(r, `{"session_id":"s","agent_id":"a","message":"m"}`)
		if resp.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, resp.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != tc.msg {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestChatInvalidBody(t *testing.T) {
	stub := &stubChatter{}
	r := setupRouter(stub)

	resp := postChat(r, `{"session_id":`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.ctx != nil {
		t.Fatal("service should not be called for a malformed body")
	}
}
