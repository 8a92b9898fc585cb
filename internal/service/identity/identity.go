// Package identity authenticates bearer tokens against an external auth
// provider and normalizes the provider's user representation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid auth token")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrSignUpFailed       = errors.New("signup failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the canonical authenticated principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity is implemented by provider user objects that expose their id and
// email through methods rather than keys.
type Identity interface {
	IdentityID() string
	IdentityEmail() string
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>".
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Normalize converts a provider user value into a User. It accepts mappings
// keyed by "id" and "email", values implementing Identity, and User itself.
// The second result is false when no usable id is present.
func Normalize(raw any) (User, bool) {
	var user User
	switch v := raw.(type) {
	case nil:
		return User{}, false
	case User:
		user = v
	case *User:
		if v == nil {
			return User{}, false
		}
		user = *v
	case Identity:
		user = User{ID: v.IdentityID(), Email: v.IdentityEmail()}
	case map[string]any:
		user = User{ID: stringify(v["id"]), Email: stringify(v["email"])}
	case map[string]string:
		user = User{ID: v["id"], Email: v["email"]}
	default:
		return User{}, false
	}
	if user.ID == "" {
		return User{}, false
	}
	return user, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

type ctxKey struct{}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(ctxKey{}).(User)
	return user, ok
}
