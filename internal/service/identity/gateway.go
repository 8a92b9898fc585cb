package identity

import (
	"context"
	"log/slog"
	"strings"
)

// Provider verifies tokens and credentials with an external auth service.
// User values are returned in whatever shape the provider produces and are
// passed through Normalize.
type Provider interface {
	GetUser(ctx context.Context, token string) (any, error)
	SignUp(ctx context.Context, email, password string) (ProviderSession, error)
	SignIn(ctx context.Context, email, password string) (ProviderSession, error)
}

// ProviderSession is the provider's answer to a signup or sign-in. AccessToken
// is empty when the provider withholds a session, e.g. pending email
// confirmation.
type ProviderSession struct {
	User        any
	AccessToken string
}

// SignUpResult is returned by Gateway.SignUp.
type SignUpResult struct {
	User                      User
	AccessToken               string
	RequiresEmailConfirmation bool
}

// SignInResult is returned by Gateway.SignIn.
type SignInResult struct {
	User        User
	AccessToken string
}

// Gateway authenticates requests. It keeps no token cache; every call
// re-validates with the provider.
type Gateway struct {
	provider Provider
	logger   *slog.Logger
}

// NewGateway wires a Gateway around provider.
func NewGateway(provider Provider, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{provider: provider, logger: logger}
}

// Authenticate resolves the Authorization header value to a User.
func (g *Gateway) Authenticate(ctx context.Context, header string) (User, error) {
	token, ok := BearerToken(header)
	if !ok {
		return User{}, ErrMissingToken
	}

	raw, err := g.provider.GetUser(ctx, token)
	if err != nil {
		g.logger.WarnContext(ctx, "auth token rejected", "error", err)
		return User{}, ErrInvalidToken
	}

	user, ok := Normalize(raw)
	if !ok {
		g.logger.WarnContext(ctx, "auth provider returned user without id")
		return User{}, ErrInvalidToken
	}
	return user, nil
}

// SignUp registers a new account.
func (g *Gateway) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return SignUpResult{}, ErrMissingCredentials
	}

	session, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		g.logger.WarnContext(ctx, "signup failed", "email", email, "error", err)
		return SignUpResult{}, ErrSignUpFailed
	}

	user, ok := Normalize(session.User)
	if !ok {
		g.logger.WarnContext(ctx, "signup returned no usable user", "email", email)
		return SignUpResult{}, ErrSignUpFailed
	}
	return SignUpResult{
		User:                      user,
		AccessToken:               session.AccessToken,
		RequiresEmailConfirmation: session.AccessToken == "",
	}, nil
}

// SignIn exchanges credentials for an access token.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return SignInResult{}, ErrMissingCredentials
	}

	session, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.logger.InfoContext(ctx, "login rejected", "email", email, "error", err)
		return SignInResult{}, ErrInvalidCredentials
	}

	user, ok := Normalize(session.User)
	if !ok || session.AccessToken == "" {
		return SignInResult{}, ErrInvalidCredentials
	}
	return SignInResult{User: user, AccessToken: session.AccessToken}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
