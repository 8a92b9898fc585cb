package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseAgents(t *testing.T) {
	data := []byte(`
- id: agent-9
  name: Legal Counsel
  role_description: Contracts
  system_prompt: You review contracts.
  color_hex: "#6366F1"
`)
	agents, err := parseAgents(data)
	if err != nil {
		t.Fatalf("parseAgents returned error: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}
	if agents[0].ID != "agent-9" || agents[0].SystemPrompt != "You review contracts." || agents[0].ColorHex != "#6366F1" {
		t.Fatalf("unexpected agent: %+v", agents[0])
	}
}

func TestParseAgentsRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"malformed": `- id: [`,
		"missing":   "- id: a\n  name: A\n",
		"duplicate": "- {id: a, name: A, system_prompt: p}\n- {id: a, name: B, system_prompt: q}\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseAgents([]byte(in)); err == nil {
				t.Fatalf("expected error for %q", in)
			}
		})
	}
}

func TestSampleRosterParses(t *testing.T) {
	agents, err := loadAgentsFile(filepath.Join("testdata", "agents.yaml"))
	if err != nil {
		t.Fatalf("load sample roster: %v", err)
	}
	if len(agents) < 4 {
		t.Fatalf("expected at least 4 agents, got %d", len(agents))
	}
}

func TestSeedDryRunPrintsRoster(t *testing.T) {
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte("- {id: x1, name: Ops Lead, role_description: Operations, system_prompt: p, color_hex: '#000000'}\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed", "-f", path, "--dry-run"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "Ops Lead") || !strings.Contains(out.String(), "x1") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
