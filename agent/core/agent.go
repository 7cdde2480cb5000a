package core

import (
	"context"
	"errors"

	"github.com/KamdynS/agentcrew/llm"
)

// ErrNoFinalAnswer is returned when the model keeps requesting tools until
// MaxIterations is exhausted without producing text.
var ErrNoFinalAnswer = errors.New("agent stopped before producing a final answer")

// DefaultMaxIterations bounds the reason/act loop when AgentConfig leaves it unset.
const DefaultMaxIterations = 5

// Message represents a conversation message with role and content
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Agent defines the core interface for AI agents
type Agent interface {
	// Run executes one reasoning-action loop with the given input and returns output
	Run(ctx context.Context, input Message) (Message, error)

	// RunStream executes the agent loop and streams responses via the provided channel.
	// The channel is closed when RunStream returns.
	RunStream(ctx context.Context, input Message, output chan<- Message) error
}

// AgentConfig holds configuration for creating agents
type AgentConfig struct {
	// Name labels spans and metrics, usually the agent role.
	Name          string
	MaxIterations int
	// Timeout is a time.ParseDuration string; empty means no timeout.
	Timeout      string
	SystemPrompt string
	// Model overrides the client's default model for every call.
	Model string
	// Session keys the transcript when a memory.Transcript is attached.
	Session string
}

// Middleware observes and may veto each step of a run. A non-nil error
// aborts the run.
type Middleware interface {
	BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, toolName string, input string) error
	AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error
	AfterRun(ctx context.Context, final Message) error
}

// HistoryProcessor rewrites the stored conversation before it is sent to
// the model.
type HistoryProcessor interface {
	Process(ctx context.Context, msgs []Message) []Message
}
