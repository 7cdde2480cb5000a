package core

import (
	"context"
	"errors"
	"strings"

	"github.com/KamdynS/agentcrew/llm"
)

var (
	ErrBlocked    = errors.New("request blocked by guardrails")
	ErrNotAllowed = errors.New("request not permitted by guardrails")
)

// SimpleGuardrails provides minimal input filtering and allow/deny checks
// on the latest user message.
type SimpleGuardrails struct {
	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Allow only if at least one of these substrings appears; if empty, allow all
	AllowSubstrings []string
	// MaxInputChars truncates the user input to this many characters; 0
	// disables truncation.
	MaxInputChars int
}

func (g *SimpleGuardrails) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	if req == nil || len(req.Messages) == 0 {
		return nil
	}
	last := &req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser {
		return nil
	}
	last.Content = truncate(last.Content, g.MaxInputChars)
	lower := strings.ToLower(last.Content)
	if containsAny(lower, g.DenySubstrings) {
		return ErrBlocked
	}
	if len(g.AllowSubstrings) > 0 && !containsAny(lower, g.AllowSubstrings) {
		return ErrNotAllowed
	}
	return nil
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func (g *SimpleGuardrails) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	return nil
}
func (g *SimpleGuardrails) BeforeToolExecute(ctx context.Context, toolName string, input string) error {
	return nil
}
func (g *SimpleGuardrails) AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error {
	return nil
}
func (g *SimpleGuardrails) AfterRun(ctx context.Context, final Message) error { return nil }

var _ Middleware = (*SimpleGuardrails)(nil)
