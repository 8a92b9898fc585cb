// agentctl 管理 Boardroom 的 agent 名册：从 YAML 文件写入数据库，或列出当前 agent。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/boardroom/backend/internal/config"
	"github.com/zhouzirui/boardroom/backend/internal/model/agent"
	"github.com/zhouzirui/boardroom/backend/internal/store"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen, color.Bold).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Manage the boardroom agent roster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newListCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert agents from a YAML file (built-in roster when no file is given)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents := agent.Seed()
			if file != "" {
				loaded, err := loadAgentsFile(file)
				if err != nil {
					return err
				}
				agents = loaded
			}

			if dryRun {
				printAgents(cmd.OutOrStdout(), agents)
				return nil
			}

			repo, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.UpsertAgents(cmd.Context(), agents); err != nil {
				return errors.Wrap(err, "upsert agents")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d agents\n", green("seeded"), len(agents))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a list of agents")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the agents without writing them")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			agents, err := repo.ListAgents(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list agents")
			}
			printAgents(cmd.OutOrStdout(), agents)
			return nil
		},
	}
}

func openStore(ctx context.Context) (store.Repository, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	opts := store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
	}
	if cfg.Store.Driver == config.StoreSupabase {
		client, err := cfg.Store.NewSupabaseClient()
		if err != nil {
			return nil, errors.Wrap(err, "create supabase client")
		}
		opts.Supabase = client
	}
	return store.Open(ctx, opts)
}

func loadAgentsFile(path string) ([]agent.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return parseAgents(data)
}

func parseAgents(data []byte) ([]agent.Agent, error) {
	var agents []agent.Agent
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, errors.Wrap(err, "parse agents yaml")
	}
	if len(agents) == 0 {
		return nil, errors.New("no agents defined")
	}

	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		if a.ID == "" || a.Name == "" || a.SystemPrompt == "" {
			return nil, errors.Errorf("agent #%d: id, name and system_prompt are required", i+1)
		}
		if seen[a.ID] {
			return nil, errors.Errorf("agent #%d: duplicate id %q", i+1, a.ID)
		}
		seen[a.ID] = true
	}
	return agents, nil
}

func printAgents(w io.Writer, agents []agent.Agent) {
	for _, a := range agents {
		fmt.Fprintf(w, "%-10s %s  %s (%s)\n", a.ID, faint(a.ColorHex), bold(a.Name), a.RoleDescription)
	}
}
