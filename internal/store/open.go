package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	supabase "github.com/supabase-community/supabase-go"

	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
)

// Driver names accepted by Open.
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Options selects and configures a Repository driver.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Supabase    *supabase.Client
	// Agents preloads the memory and sqlite drivers. Nil means agent.Seed().
	Agents []agent.Agent
}

// Open builds the Repository named by opts.Driver.
func Open(ctx context.Context, opts Options) (Repository, error) {
	agents := opts.Agents
	if agents == nil {
		agents = agent.Seed()
	}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSupabase, "":
		if opts.Supabase == nil {
			return nil, errors.New("supabase driver requires a client")
		}
		return NewSupabase(opts.Supabase), nil
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, errors.New("postgres driver requires DATABASE_URL")
		}
		return NewPostgres(ctx, opts.DatabaseURL)
	case DriverSQLite:
		s, err := NewSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := seedIfEmpty(ctx, s, agents); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(agents), nil
	default:
		return nil, errors.Errorf("unknown store driver %q", opts.Driver)
	}
}

func seedIfEmpty(ctx context.Context, repo Repository, agents []agent.Agent) error {
	existing, err := repo.ListAgents(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return repo.UpsertAgents(ctx, agents)
}
