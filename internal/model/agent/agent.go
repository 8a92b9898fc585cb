package agent

// Agent is a boardroom persona with a fixed system prompt. Agents are shared
// reference data; the API never mutates them.
type Agent struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	RoleDescription string `json:"role_description" yaml:"role_description"`
	SystemPrompt    string `json:"system_prompt" yaml:"system_prompt"`
	ColorHex        string `json:"color_hex" yaml:"color_hex"`
}

// Profile is the public projection of an agent. The system prompt stays on
// the server.
type Profile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RoleDescription string `json:"role_description"`
	ColorHex        string `json:"color_hex"`
}

// Profile projects the agent for listings.
func (a Agent) Profile() Profile {
	return Profile{
		ID:              a.ID,
		Name:            a.Name,
		RoleDescription: a.RoleDescription,
		ColorHex:        a.ColorHex,
	}
}

// Seed provides the default boardroom roster used by the in-memory store and
// by agentctl when no seed file is given.
func Seed() []Agent {
	return []Agent{
		{
			ID:              "agent-1",
			Name:            "Senior Architect",
			RoleDescription: "System design",
			SystemPrompt:    "You are a senior software architect sitting on a boardroom panel. Reason about system boundaries, failure modes and long-term maintainability. Be concrete and name trade-offs explicitly.",
			ColorHex:        "#3B82F6",
		},
		{
			ID:              "agent-2",
			Name:            "Product Strategist",
			RoleDescription: "Market and user value",
			SystemPrompt:    "You are a product strategist on a boardroom panel. Tie every proposal back to user value, market positioning and measurable outcomes. Challenge scope that does not serve a clear customer.",
			ColorHex:        "#10B981",
		},
		{
			ID:              "agent-3",
			Name:            "Security Officer",
			RoleDescription: "Risk and compliance",
			SystemPrompt:    "You are the security officer on a boardroom panel. Identify threats, data exposure and compliance obligations in what is proposed, and suggest the smallest controls that address them.",
			ColorHex:        "#EF4444",
		},
		{
			ID:              "agent-4",
			Name:            "Finance Lead",
			RoleDescription: "Cost and runway",
			SystemPrompt:    "You are the finance lead on a boardroom panel. Estimate costs, highlight budget risks and ask for the numbers behind every claim. Keep answers short and quantitative.",
			ColorHex:        "#F59E0B",
		},
	}
}
