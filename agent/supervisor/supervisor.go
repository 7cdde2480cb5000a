// Package supervisor lets one agent hand work to another by exposing the
// co-worker as a tool.
package supervisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	core "github.com/KamdynS/agentcrew/agent/core"
	"github.com/KamdynS/agentcrew/tools"
)

// AgentTool wraps an Agent as a tools.Tool so it can be delegated to.
type AgentTool struct {
	NameStr, Desc string
	Agent         core.Agent
}

// DelegateArgs is the argument object of a delegation call.
type DelegateArgs struct {
	Task    string `json:"task"`
	Context string `json:"context"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ToolName derives the delegation tool name for a co-worker role,
// e.g. "Concise Summarizer" becomes "delegate_to_concise_summarizer".
func ToolName(role string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(role), "_"), "_")
	return "delegate_to_" + slug
}

// NewAgentTool builds the delegation tool for a co-worker with the given role.
func NewAgentTool(role string, agent core.Agent) *AgentTool {
	return &AgentTool{
		NameStr: ToolName(role),
		Desc: fmt.Sprintf("Delegate a specific task to the %s. Provide the task and all the context "+
			"the co-worker needs; it knows nothing else about the work.", role),
		Agent: agent,
	}
}

func (a *AgentTool) Name() string        { return a.NameStr }
func (a *AgentTool) Description() string { return a.Desc }
func (a *AgentTool) Schema() map[string]interface{} {
	return tools.ObjectSchema([]string{"task"}, map[string]string{
		"task":    "The task to delegate",
		"context": "Everything the co-worker needs to know to do the task",
	})
}

func (a *AgentTool) Execute(ctx context.Context, input string) (string, error) {
	if a.Agent == nil {
		return "", fmt.Errorf("nil agent")
	}
	var args DelegateArgs
	if err := tools.DecodeArgs(input, &args, "task"); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Task) == "" {
		return "", fmt.Errorf("task is required")
	}
	content := args.Task
	if c := strings.TrimSpace(args.Context); c != "" {
		content += "\n\nCONTEXT:\n" + c
	}
	out, err := a.Agent.Run(ctx, core.Message{Role: "user", Content: content})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

var _ tools.Tool = (*AgentTool)(nil)
