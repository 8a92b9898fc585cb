package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/zhouzirui/boardroom/backend/internal/model/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	sessionService "github.com/zhouzirui/boardroom/backend/internal/service/session"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Sessions is the session surface the endpoints need.
type Sessions interface {
	List(ctx context.Context, userID string) ([]chat.Session, error)
	Create(ctx context.Context, userID string) (chat.Session, error)
	Messages(ctx context.Context, sessionID, userID string) ([]chat.Message, error)
}

// Handler 会话相关的HTTP处理器
type Handler struct {
	sessions Sessions
	logger   *slog.Logger
}

// New 创建会话处理器
func New(sessions Sessions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// RegisterRoutes 注册会话路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/messages", h.handleListMessages)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())

	sessions, err := h.sessions.List(r.Context(), user.ID)
	if err != nil {
		h.logError(r, "error fetching sessions", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch sessions")
		return
	}

	utils.RespondJSON(w, http.StatusOK, lo.Map(sessions, func(s chat.Session, _ int) chat.Summary {
		return s.Summary()
	}))
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logError(r, "error creating session", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.sessions.Messages(r.Context(), sessionID, user.ID)
	if errors.Is(err, sessionService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.logError(r, "error fetching messages", err, "session_id", sessionID)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, lo.Map(messages, func(m chat.Message, _ int) chat.Transcript {
		return m.Transcript()
	}))
}

func (h *Handler) logError(r *http.Request, msg string, err error, args ...any) {
	args = append(args, "error", err, "req_id", chimw.GetReqID(r.Context()))
	h.logger.ErrorContext(r.Context(), msg, args...)
}
