package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Gateway is the account surface the auth endpoints need.
type Gateway interface {
	SignUp(ctx context.Context, email, password string) (identity.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (identity.SignInResult, error)
}

// Handler 账号注册/登录的HTTP处理器
type Handler struct {
	gateway Gateway
}

// New 创建认证处理器
func New(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes 注册无需登录的认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtectedRoutes 注册需要 Bearer token 的路由
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.gateway.SignUp(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, identity.ErrMissingCredentials):
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	case err != nil:
		utils.RespondError(w, http.StatusBadRequest, "Signup failed")
		return
	}

	var token *string
	if result.AccessToken != "" {
		token = &result.AccessToken
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"user":                        result.User,
		"access_token":                token,
		"requires_email_confirmation": result.RequiresEmailConfirmation,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.gateway.SignIn(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, identity.ErrMissingCredentials):
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	case err != nil:
		utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid auth token")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": user})
}
