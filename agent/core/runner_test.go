package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/llm/llmtest"
	"github.com/KamdynS/agentcrew/memory/inmemory"
	"github.com/KamdynS/agentcrew/tools"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echo" }
func (echoTool) Execute(ctx context.Context, input string) (string, error) {
	return "E:" + input, nil
}
func (echoTool) Schema() map[string]interface{} {
	return tools.ObjectSchema([]string{"input"}, map[string]string{"input": "text"})
}

type failingTool struct{}

func (failingTool) Name() string                   { return "broken" }
func (failingTool) Description() string            { return "always fails" }
func (failingTool) Schema() map[string]interface{} { return tools.ObjectSchema(nil, nil) }
func (failingTool) Execute(ctx context.Context, input string) (string, error) {
	return "", errors.New("boom")
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.Function{Name: name, Arguments: args}}
}

func TestChatAgent_Run_Basic(t *testing.T) {
	fake := llmtest.New("Hello! How can I help?")
	agent := NewChatAgent(ChatConfig{
		Model:  fake,
		Config: AgentConfig{SystemPrompt: "You are helpful"},
	})

	out, err := agent.Run(context.Background(), Message{Role: "user", Content: "Hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Role != llm.RoleAssistant || out.Content != "Hello! How can I help?" {
		t.Fatalf("unexpected output %+v", out)
	}
	if fake.Calls() != 1 {
		t.Fatalf("calls = %d", fake.Calls())
	}
	req := fake.Requests[0]
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != "You are helpful" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
	if req.Messages[1].Role != llm.RoleUser || req.Messages[1].Content != "Hello" {
		t.Fatalf("user message not forwarded: %+v", req.Messages[1])
	}
}

func TestChatAgent_Run_DefaultsRole(t *testing.T) {
	fake := llmtest.New("ok")
	agent := NewChatAgent(ChatConfig{Model: fake})
	if _, err := agent.Run(context.Background(), Message{Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if got := fake.Requests[0].Messages[0].Role; got != llm.RoleUser {
		t.Fatalf("role = %q", got)
	}
}

func TestChatAgent_Run_WithToolInvocation(t *testing.T) {
	fake := llmtest.New()
	fake.Push(&llm.Response{ToolCalls: []llm.ToolCall{toolCall("c1", "echo", `{"input":"ok"}`)}})
	fake.Push(&llm.Response{Content: "done"})

	agent := NewChatAgent(ChatConfig{
		Model:  fake,
		Tools:  tools.NewRegistry(echoTool{}),
		Config: AgentConfig{SystemPrompt: "sys"},
	})
	out, err := agent.Run(context.Background(), Message{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Content != "done" {
		t.Fatalf("final = %q", out.Content)
	}

	if len(fake.Requests[0].Tools) != 1 || fake.Requests[0].ToolChoice != "auto" {
		t.Fatalf("tools not advertised: %+v", fake.Requests[0])
	}
	second := fake.Requests[1].Messages
	if len(second) != 4 {
		t.Fatalf("expected system,user,assistant,tool; got %+v", second)
	}
	if second[2].Role != llm.RoleAssistant || len(second[2].ToolCalls) != 1 {
		t.Fatalf("assistant tool-call turn missing: %+v", second[2])
	}
	if second[3].Role != llm.RoleTool || second[3].ToolCallID != "c1" || second[3].Content != `E:{"input":"ok"}` {
		t.Fatalf("tool result = %+v", second[3])
	}
}

func TestChatAgent_Run_ToolErrorsReachModel(t *testing.T) {
	fake := llmtest.New()
	fake.Push(&llm.Response{ToolCalls: []llm.ToolCall{
		toolCall("a", "broken", `{}`),
		toolCall("b", "missing", `{}`),
	}})
	fake.Push(&llm.Response{Content: "recovered"})

	agent := NewChatAgent(ChatConfig{Model: fake, Tools: tools.NewRegistry(failingTool{})})
	out, err := agent.Run(context.Background(), Message{Content: "go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Content != "recovered" {
		t.Fatalf("final = %q", out.Content)
	}
	msgs := fake.Requests[1].Messages
	if !strings.Contains(msgs[len(msgs)-2].Content, "boom") {
		t.Errorf("tool error not reported: %q", msgs[len(msgs)-2].Content)
	}
	if !strings.Contains(msgs[len(msgs)-1].Content, "not found") {
		t.Errorf("missing tool not reported: %q", msgs[len(msgs)-1].Content)
	}
}

func TestChatAgent_Run_MaxIterations(t *testing.T) {
	fake := llmtest.New()
	fake.Fallback = &llm.Response{ToolCalls: []llm.ToolCall{toolCall("x", "echo", `{}`)}}
	agent := NewChatAgent(ChatConfig{
		Model:  fake,
		Tools:  tools.NewRegistry(echoTool{}),
		Config: AgentConfig{MaxIterations: 3},
	})
	_, err := agent.Run(context.Background(), Message{Content: "loop"})
	if !errors.Is(err, ErrNoFinalAnswer) {
		t.Fatalf("err = %v", err)
	}
	if fake.Calls() != 3 {
		t.Fatalf("calls = %d", fake.Calls())
	}
}

func TestChatAgent_Run_WithTranscript(t *testing.T) {
	store := inmemory.NewStore()
	fake := llmtest.New("first", "second")
	agent := NewChatAgent(ChatConfig{
		Model:      fake,
		Transcript: store,
		Config:     AgentConfig{Session: "s1"},
	})
	ctx := context.Background()
	if _, err := agent.Run(ctx, Message{Content: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := agent.Run(ctx, Message{Content: "two"}); err != nil {
		t.Fatal(err)
	}

	msgs, _ := store.Messages(ctx, "s1")
	var got []string
	for _, m := range msgs {
		got = append(got, m.Role+":"+m.Content)
	}
	want := "user:one|assistant:first|user:two|assistant:second"
	if strings.Join(got, "|") != want {
		t.Fatalf("transcript = %v", got)
	}
	if n := len(fake.Requests[1].Messages); n != 3 {
		t.Fatalf("second call should replay history, got %d messages", n)
	}
}

func TestChatAgent_Run_Processors(t *testing.T) {
	store := inmemory.NewStore()
	fake := llmtest.New("a", "b")
	agent := NewChatAgent(ChatConfig{
		Model:      fake,
		Transcript: store,
		Processors: []HistoryProcessor{TokenLimiter{MaxChars: 4}},
	})
	ctx := context.Background()
	_, _ = agent.Run(ctx, Message{Content: "aaaa"})
	_, _ = agent.Run(ctx, Message{Content: "bb"})
	msgs := fake.Requests[1].Messages
	if len(msgs) != 2 || msgs[len(msgs)-1].Content != "bb" {
		t.Fatalf("expected trimmed history, got %+v", msgs)
	}
}

func TestChatAgent_Run_TimeoutExceeded(t *testing.T) {
	agent := NewChatAgent(ChatConfig{
		Model:  slowModel{Fake: llmtest.New(), delay: 200 * time.Millisecond},
		Config: AgentConfig{Timeout: "10ms"},
	})
	if _, err := agent.Run(context.Background(), Message{Content: "x"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestChatAgent_Run_InvalidTimeout(t *testing.T) {
	agent := NewChatAgent(ChatConfig{Model: llmtest.New("x"), Config: AgentConfig{Timeout: "soon"}})
	if _, err := agent.Run(context.Background(), Message{Content: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestChatAgent_Run_LLMError(t *testing.T) {
	fake := llmtest.New()
	fake.Err = llm.NewLLMError(llm.ProviderOpenAI, llm.ErrorTypeAuthentication, "bad key")
	agent := NewChatAgent(ChatConfig{Model: fake})
	_, err := agent.Run(context.Background(), Message{Content: "x"})
	if !llm.IsAuthenticationError(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestChatAgent_Run_NoModel(t *testing.T) {
	if _, err := (&ChatAgent{}).Run(context.Background(), Message{Content: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestChatAgent_ImplementsInterface(t *testing.T) {
	var _ Agent = (*ChatAgent)(nil)
}

type slowModel struct {
	*llmtest.Fake
	delay time.Duration
}

func (m slowModel) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	select {
	case <-time.After(m.delay):
		return &llm.Response{Content: "late"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
