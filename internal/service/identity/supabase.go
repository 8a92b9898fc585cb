package identity

import (
	"context"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// SupabaseProvider verifies tokens and credentials with Supabase Auth
// (GoTrue). The GoTrue client carries no context.
type SupabaseProvider struct {
	auth gotrue.Client
}

// NewSupabaseProvider wraps a GoTrue client, normally supabase.Client.Auth.
func NewSupabaseProvider(auth gotrue.Client) *SupabaseProvider {
	return &SupabaseProvider{auth: auth}
}

// gotrueUser adapts the GoTrue user to Identity.
type gotrueUser types.User

func (u gotrueUser) IdentityID() string {
	if u.ID == uuid.Nil {
		return ""
	}
	return u.ID.String()
}

func (u gotrueUser) IdentityEmail() string { return u.Email }

func (p *SupabaseProvider) GetUser(_ context.Context, token string) (any, error) {
	resp, err := p.auth.WithToken(token).GetUser()
	if err != nil {
		return nil, err
	}
	return gotrueUser(resp.User), nil
}

func (p *SupabaseProvider) SignUp(_ context.Context, email, password string) (ProviderSession, error) {
	resp, err := p.auth.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		return ProviderSession{}, err
	}
	// With auto-confirm on the user arrives inside the session; otherwise
	// only the user is returned and no token is issued.
	if resp.AccessToken != "" {
		return ProviderSession{User: gotrueUser(resp.Session.User), AccessToken: resp.AccessToken}, nil
	}
	return ProviderSession{User: gotrueUser(resp.User)}, nil
}

func (p *SupabaseProvider) SignIn(_ context.Context, email, password string) (ProviderSession, error) {
	resp, err := p.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return ProviderSession{}, err
	}
	return ProviderSession{User: gotrueUser(resp.User), AccessToken: resp.AccessToken}, nil
}
