// Package crew assembles role-playing agents and their tasks into a crew
// and runs the tasks in order.
package crew

import (
	"fmt"
	"strings"

	"github.com/KamdynS/agentcrew/tools"
)

// Agent describes a crew member. It is plain data; Kickoff turns it into a
// running core.ChatAgent.
type Agent struct {
	Role            string
	Goal            string
	Backstory       string
	Tools           []tools.Tool
	AllowDelegation bool
	Verbose         bool
	// Model overrides the crew's default model for this agent.
	Model string
	// MaxIter bounds tool-use rounds per task.
	MaxIter int
}

// SystemPrompt is the persona the agent's model is primed with.
func (a *Agent) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\nYour personal goal is: %s", a.Role, a.Backstory, a.Goal)
	if len(a.Tools) > 0 {
		fmt.Fprintf(&b, "\nYou have access to these tools: %s. Use them only when they help you complete the task.",
			strings.Join(a.ToolNames(), ", "))
	}
	return b.String()
}

// ToolNames lists the names of the attached tools in order.
func (a *Agent) ToolNames() []string {
	names := make([]string, len(a.Tools))
	for i, t := range a.Tools {
		names[i] = t.Name()
	}
	return names
}
