package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memoryAccount struct {
	id       string
	email    string
	password string
}

// MemoryProvider is an in-process auth provider for local development and
// tests. Users are returned as maps, the same shape a REST auth API yields.
type MemoryProvider struct {
	mu       sync.Mutex
	next     int
	accounts map[string]memoryAccount // by email
	tokens   map[string]string        // token -> user id
}

// NewMemoryProvider returns an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]memoryAccount),
		tokens:   make(map[string]string),
	}
}

func (p *MemoryProvider) GetUser(_ context.Context, token string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.tokens[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	for _, account := range p.accounts {
		if account.id == id {
			return account.view(), nil
		}
	}
	return nil, errors.New("unknown user")
}

func (p *MemoryProvider) SignUp(_ context.Context, email, password string) (ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return ProviderSession{}, fmt.Errorf("user %s already registered", email)
	}
	p.next++
	account := memoryAccount{id: fmt.Sprintf("user-%d", p.next), email: email, password: password}
	p.accounts[email] = account
	return ProviderSession{User: account.view(), AccessToken: p.issue(account.id)}, nil
}

func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, ok := p.accounts[email]
	if !ok || account.password != password {
		return ProviderSession{}, errors.New("invalid login credentials")
	}
	return ProviderSession{User: account.view(), AccessToken: p.issue(account.id)}, nil
}

// issue mints a fresh token; callers must hold p.mu.
func (p *MemoryProvider) issue(userID string) string {
	token := "token-" + userID + "-" + uuid.NewString()
	p.tokens[token] = userID
	return token
}

func (a memoryAccount) view() map[string]any {
	return map[string]any{"id": a.id, "email": a.email}
}
