package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Authenticator resolves an Authorization header value to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (identity.User, error)
}

// Auth rejects requests without a valid bearer token with 401 and stores the
// authenticated user on the request context otherwise.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				message := "Invalid auth token"
				if errors.Is(err, identity.ErrMissingToken) {
					message = "Missing Bearer token"
				}
				utils.RespondError(w, http.StatusUnauthorized, message)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		})
	}
}
