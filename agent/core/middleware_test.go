package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/llm/llmtest"
	"github.com/KamdynS/agentcrew/tools"
)

// traceMW records hook calls in order and fails the hook named in failOn.
type traceMW struct {
	calls  []string
	failOn string
}

func (m *traceMW) hit(name string) error {
	m.calls = append(m.calls, name)
	if name == m.failOn {
		return errors.New(name + " refused")
	}
	return nil
}

func (m *traceMW) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	return m.hit("before_llm")
}
func (m *traceMW) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	return m.hit("after_llm")
}
func (m *traceMW) BeforeToolExecute(ctx context.Context, toolName string, input string) error {
	return m.hit("before_tool:" + toolName)
}
func (m *traceMW) AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error {
	return m.hit("after_tool:" + toolName)
}
func (m *traceMW) AfterRun(ctx context.Context, final Message) error { return m.hit("after_run") }

func toolThenAnswer() *llmtest.Fake {
	fake := llmtest.New()
	fake.Push(&llm.Response{ToolCalls: []llm.ToolCall{toolCall("1", "echo", `{"input":"x"}`)}})
	fake.Push(&llm.Response{Content: "ok"})
	return fake
}

func TestMiddleware_HookOrder(t *testing.T) {
	mw := &traceMW{}
	agent := NewChatAgent(ChatConfig{
		Model:      toolThenAnswer(),
		Tools:      tools.NewRegistry(echoTool{}),
		Middleware: []Middleware{mw},
	})
	if _, err := agent.Run(context.Background(), Message{Role: llm.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("run err: %v", err)
	}
	want := []string{
		"before_llm", "after_llm",
		"before_tool:echo", "after_tool:echo",
		"before_llm", "after_llm",
		"after_run",
	}
	if !reflect.DeepEqual(mw.calls, want) {
		t.Fatalf("hooks = %v, want %v", mw.calls, want)
	}
}

func TestMiddleware_ErrorStopsRun(t *testing.T) {
	for _, hook := range []string{"before_llm", "after_llm", "before_tool:echo", "after_tool:echo", "after_run"} {
		t.Run(hook, func(t *testing.T) {
			mw := &traceMW{failOn: hook}
			agent := NewChatAgent(ChatConfig{
				Model:      toolThenAnswer(),
				Tools:      tools.NewRegistry(echoTool{}),
				Middleware: []Middleware{mw},
			})
			_, err := agent.Run(context.Background(), Message{Role: llm.RoleUser, Content: "hi"})
			if err == nil || err.Error() != hook+" refused" {
				t.Fatalf("err = %v", err)
			}
			if last := mw.calls[len(mw.calls)-1]; last != hook {
				t.Fatalf("run continued after %s: %v", hook, mw.calls)
			}
		})
	}
}

func TestGuardrails_BlockBeforeModel(t *testing.T) {
	gr := &SimpleGuardrails{DenySubstrings: []string{"blocked"}}
	fake := llmtest.New("unreachable")
	agent := NewChatAgent(ChatConfig{
		Model:      fake,
		Config:     AgentConfig{SystemPrompt: "sys"},
		Middleware: []Middleware{gr},
	})
	_, err := agent.Run(context.Background(), Message{Role: llm.RoleUser, Content: "this is BLOCKED content"})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v", err)
	}
	if fake.Calls() != 0 {
		t.Fatalf("model should not be called")
	}
}
