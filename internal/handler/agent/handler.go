package agent

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Handler agent 列表的HTTP处理器
type Handler struct {
	agents agent.Store
	logger *slog.Logger
}

// New 创建 agent 处理器
func New(agents agent.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{agents: agents, logger: logger}
}

// RegisterRoutes 注册 agent 相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agents", h.handleListAgents)
}

// handleListAgents 列出所有 agent，不返回 system prompt
func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.ListAgents(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "error fetching agents", "error", err, "req_id", chimw.GetReqID(r.Context()))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch agents")
		return
	}

	utils.RespondJSON(w, http.StatusOK, lo.Map(agents, func(a agent.Agent, _ int) agent.Profile {
		return a.Profile()
	}))
}
