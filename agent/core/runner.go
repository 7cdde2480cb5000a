package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/memory"
	obs "github.com/KamdynS/agentcrew/observability"
	"github.com/KamdynS/agentcrew/tools"
)

// ChatAgent is the default implementation of the Agent interface
type ChatAgent struct {
	Model      llm.Client
	Tools      tools.Registry
	Transcript memory.Transcript
	Middleware []Middleware
	Processors []HistoryProcessor
	Config     AgentConfig
}

// NewChatAgent creates a new ChatAgent with the given configuration
func NewChatAgent(config ChatConfig) *ChatAgent {
	return &ChatAgent{
		Model:      config.Model,
		Tools:      config.Tools,
		Transcript: config.Transcript,
		Middleware: config.Middleware,
		Processors: config.Processors,
		Config:     config.Config,
	}
}

// ChatConfig holds configuration for ChatAgent
type ChatConfig struct {
	Model      llm.Client
	Tools      tools.Registry
	Transcript memory.Transcript
	Middleware []Middleware
	Processors []HistoryProcessor
	Config     AgentConfig
}

func (a *ChatAgent) session() string {
	if a.Config.Session != "" {
		return a.Config.Session
	}
	return "default"
}

func (a *ChatAgent) labels() map[string]string {
	return map[string]string{"component": "agent", "name": a.Config.Name}
}

// Run implements the Agent interface
func (a *ChatAgent) Run(ctx context.Context, input Message) (Message, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	if a.Config.Name != "" {
		span.SetAttribute(obs.AttrAgentRole, a.Config.Name)
	}

	result, err := a.run(ctx, input)
	if err != nil {
		obs.MetricsImpl.RecordError("agent_error", a.labels())
		span.SetStatus(obs.StatusCodeError, err.Error())
		return Message{}, err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

func (a *ChatAgent) run(ctx context.Context, input Message) (Message, error) {
	if a.Model == nil {
		return Message{}, fmt.Errorf("agent %q has no model", a.Config.Name)
	}
	if a.Config.Timeout != "" {
		timeout, err := time.ParseDuration(a.Config.Timeout)
		if err != nil {
			return Message{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if input.Role == "" {
		input.Role = llm.RoleUser
	}

	history, err := a.history(ctx, input)
	if err != nil {
		return Message{}, err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	if a.Config.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.Config.SystemPrompt})
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	toolDefs := a.toolDefs()

	maxIterations := a.Config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	// ReAct-lite loop
	var final *llm.Response
	for iter := 0; iter < maxIterations; iter++ {
		req := &llm.ChatRequest{Messages: messages, Tools: toolDefs, Model: a.Config.Model}
		if len(toolDefs) > 0 {
			req.ToolChoice = "auto"
		}
		for _, mw := range a.Middleware {
			if err := mw.BeforeLLMCall(ctx, req); err != nil {
				return Message{}, err
			}
		}
		// middleware may rewrite the request
		messages = req.Messages

		resp, err := a.Model.Chat(ctx, req)
		if err != nil {
			return Message{}, fmt.Errorf("LLM call failed: %w", err)
		}
		if resp.Usage != nil {
			obs.MetricsImpl.IncrementTokensUsed(resp.Usage.TotalTokens, a.labels())
		}
		for _, mw := range a.Middleware {
			if err := mw.AfterLLMResponse(ctx, resp); err != nil {
				return Message{}, err
			}
		}
		final = resp

		if len(resp.ToolCalls) == 0 || a.Tools == nil {
			break
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			out, err := a.callTool(ctx, tc)
			if err != nil {
				return Message{}, err
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    out,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
		final = nil
	}

	if final == nil || (strings.TrimSpace(final.Content) == "" && len(final.ToolCalls) > 0) {
		return Message{}, ErrNoFinalAnswer
	}

	result := Message{
		Role:    llm.RoleAssistant,
		Content: final.Content,
		Meta:    map[string]string{"model": final.Model, "provider": string(final.Provider)},
	}
	if a.Transcript != nil {
		if err := a.Transcript.Append(ctx, a.session(), memory.Message{Role: result.Role, Content: result.Content}); err != nil {
			return Message{}, fmt.Errorf("failed to store response: %w", err)
		}
	}
	for _, mw := range a.Middleware {
		if err := mw.AfterRun(ctx, result); err != nil {
			return Message{}, err
		}
	}
	return result, nil
}

// history stores input in the transcript, when one is attached, and returns
// the processed conversation ending with input.
func (a *ChatAgent) history(ctx context.Context, input Message) ([]Message, error) {
	if a.Transcript == nil {
		return a.process(ctx, []Message{input}), nil
	}
	prior, err := a.Transcript.Messages(ctx, a.session())
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if err := a.Transcript.Append(ctx, a.session(), memory.Message{Role: input.Role, Content: input.Content, Meta: input.Meta}); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	msgs := make([]Message, 0, len(prior)+1)
	for _, m := range prior {
		msgs = append(msgs, Message{Role: m.Role, Content: m.Content, Meta: m.Meta})
	}
	return a.process(ctx, append(msgs, input)), nil
}

func (a *ChatAgent) process(ctx context.Context, msgs []Message) []Message {
	for _, p := range a.Processors {
		msgs = p.Process(ctx, msgs)
	}
	return msgs
}

func (a *ChatAgent) toolDefs() []llm.Tool {
	if a.Tools == nil {
		return nil
	}
	var defs []llm.Tool
	for _, name := range a.Tools.List() {
		t, ok := a.Tools.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}

// callTool runs one requested tool. Tool failures are reported back to the
// model as text; only middleware errors abort the run.
func (a *ChatAgent) callTool(ctx context.Context, tc llm.ToolCall) (string, error) {
	name := tc.Function.Name
	for _, mw := range a.Middleware {
		if err := mw.BeforeToolExecute(ctx, name, tc.Function.Arguments); err != nil {
			return "", err
		}
	}
	var (
		out     string
		execErr error
	)
	if _, ok := a.Tools.Get(name); !ok {
		execErr = fmt.Errorf("tool %s not found", name)
	} else {
		out, execErr = a.Tools.Execute(ctx, name, tc.Function.Arguments)
	}
	if execErr != nil {
		out = fmt.Sprintf("error: %v", execErr)
	}
	for _, mw := range a.Middleware {
		if err := mw.AfterToolExecute(ctx, name, out, execErr); err != nil {
			return "", err
		}
	}
	return out, nil
}

// RunStream streams model deltas when the agent has no tools, ending with
// the aggregated answer marked Meta["final"]="true". Agents with tools run
// the full loop and emit only the final answer.
func (a *ChatAgent) RunStream(ctx context.Context, input Message, output chan<- Message) error {
	defer close(output)

	if a.Tools != nil && len(a.Tools.List()) > 0 {
		result, err := a.Run(ctx, input)
		if err != nil {
			return err
		}
		return send(ctx, output, withFinal(result))
	}

	if input.Role == "" {
		input.Role = llm.RoleUser
	}
	history, err := a.history(ctx, input)
	if err != nil {
		return err
	}
	req := &llm.ChatRequest{SystemPrompt: a.Config.SystemPrompt, Model: a.Config.Model}
	for _, m := range history {
		req.Messages = append(req.Messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	for _, mw := range a.Middleware {
		if err := mw.BeforeLLMCall(ctx, req); err != nil {
			return err
		}
	}

	chunks := make(chan *llm.Response)
	errc := make(chan error, 1)
	go func() { errc <- a.Model.Stream(ctx, req, chunks) }()

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := send(ctx, output, Message{Role: llm.RoleAssistant, Content: chunk.Content}); err != nil {
			// drain so the producer can exit
			for range chunks {
			}
			<-errc
			return err
		}
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("LLM stream failed: %w", err)
	}

	result := Message{Role: llm.RoleAssistant, Content: full.String()}
	if a.Transcript != nil {
		if err := a.Transcript.Append(ctx, a.session(), memory.Message{Role: result.Role, Content: result.Content}); err != nil {
			return fmt.Errorf("failed to store response: %w", err)
		}
	}
	for _, mw := range a.Middleware {
		if err := mw.AfterRun(ctx, result); err != nil {
			return err
		}
	}
	return send(ctx, output, withFinal(result))
}

func withFinal(m Message) Message {
	meta := make(map[string]string, len(m.Meta)+1)
	for k, v := range m.Meta {
		meta[k] = v
	}
	meta["final"] = "true"
	m.Meta = meta
	return m
}

func send(ctx context.Context, output chan<- Message, m Message) error {
	select {
	case output <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
