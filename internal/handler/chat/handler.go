package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	chatService "github.com/zhouzirui/boardroom/backend/internal/service/chat"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Chatter runs one chat exchange.
type Chatter interface {
	Chat(ctx context.Context, req chatService.Request) (chat.Message, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc Chatter
	logger  *slog.Logger
}

// New 创建聊天处理器
func New(chatSvc Chatter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chatSvc: chatSvc, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat 保存用户消息、调用模型并返回 agent 回复
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
		AgentID   string `json:"agent_id"`
		Message   string `json:"message"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, _ := identity.UserFromContext(r.Context())

	// The exchange runs to completion even if the client goes away.
	reply, err := h.chatSvc.Chat(context.WithoutCancel(r.Context()), chatService.Request{
		SessionID: payload.SessionID,
		AgentID:   payload.AgentID,
		Message:   payload.Message,
		UserID:    user.ID,
	})
	if err != nil {
		status, message := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "error in chat", "error", err, "req_id", chimw.GetReqID(r.Context()))
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"message": reply.Reply()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrInvalidRequest):
		return http.StatusBadRequest, "session_id, agent_id, and message are required"
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, chatService.ErrAgentNotFound):
		return http.StatusNotFound, "Agent not found"
	default:
		return http.StatusInternalServerError, "Chat request failed"
	}
}
