package crew

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	core "github.com/KamdynS/agentcrew/agent/core"
	"github.com/KamdynS/agentcrew/llm"
)

// StepLogger is middleware that narrates an agent's work: model calls,
// tool use and the final answer.
type StepLogger struct {
	Logger *log.Logger
	Role   string
}

func (s *StepLogger) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	s.Logger.Debug("Agent thinking", "agent", s.Role, "messages", len(req.Messages), "tools", len(req.Tools))
	return nil
}

func (s *StepLogger) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	kv := []interface{}{"agent", s.Role, "model", resp.Model}
	if resp.Usage != nil {
		kv = append(kv, "tokens", resp.Usage.TotalTokens)
	}
	if resp.Meta["cache"] == "hit" {
		kv = append(kv, "cache", "hit")
	}
	s.Logger.Debug("Model replied", kv...)
	return nil
}

func (s *StepLogger) BeforeToolExecute(ctx context.Context, toolName string, input string) error {
	s.Logger.Info("Using tool", "agent", s.Role, "tool", toolName, "input", clip(input, 120))
	return nil
}

func (s *StepLogger) AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error {
	if execErr != nil {
		s.Logger.Warn("Tool failed", "agent", s.Role, "tool", toolName, "error", execErr)
		return nil
	}
	s.Logger.Debug("Tool output", "agent", s.Role, "tool", toolName, "output", clip(result, 200))
	return nil
}

func (s *StepLogger) AfterRun(ctx context.Context, final core.Message) error {
	s.Logger.Info("Final answer", "agent", s.Role, "chars", len(final.Content))
	return nil
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

var _ core.Middleware = (*StepLogger)(nil)
