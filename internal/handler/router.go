package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/boardroom/backend/internal/handler/agent"
	"github.com/zhouzirui/boardroom/backend/internal/handler/auth"
	"github.com/zhouzirui/boardroom/backend/internal/handler/chat"
	"github.com/zhouzirui/boardroom/backend/internal/handler/health"
	"github.com/zhouzirui/boardroom/backend/internal/handler/session"
	middlewarePkg "github.com/zhouzirui/boardroom/backend/internal/middleware"
	agentModel "github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Authenticator  middlewarePkg.Authenticator
	Accounts       auth.Gateway
	Sessions       session.Sessions
	Agents         agentModel.Store
	Chat           chat.Chatter
	Store          health.Pinger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middlewarePkg.Recoverer(logger))
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))
	r.Use(middleware.Heartbeat("/health"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	authHandler := auth.New(deps.Accounts)
	sessionHandler := session.New(deps.Sessions, logger)
	agentHandler := agent.New(deps.Agents, logger)
	chatHandler := chat.New(deps.Chat, logger)

	r.Route("/api", func(api chi.Router) {
		if deps.Store != nil {
			health.New(deps.Store).RegisterRoutes(api)
		}
		authHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.Auth(deps.Authenticator))

			authHandler.RegisterProtectedRoutes(protected)
			sessionHandler.RegisterRoutes(protected)
			agentHandler.RegisterRoutes(protected)
			chatHandler.RegisterRoutes(protected)
		})
	})

	return r
}
