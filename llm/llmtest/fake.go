// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/KamdynS/agentcrew/llm"
)

// Fake replays scripted responses in order. Once the script is exhausted
// it answers with Fallback, or echoes the last user message when Fallback
// is nil.
type Fake struct {
	ModelName string
	Fallback  *llm.Response
	Err       error

	mu       sync.Mutex
	script   []*llm.Response
	Requests []*llm.ChatRequest
}

// New returns a Fake that will answer with the given contents in order.
func New(contents ...string) *Fake {
	f := &Fake{ModelName: "fake-model"}
	for _, c := range contents {
		f.script = append(f.script, &llm.Response{Content: c})
	}
	return f
}

// Push queues a full response, e.g. one carrying tool calls.
func (f *Fake) Push(r *llm.Response) *Fake {
	f.mu.Lock()
	f.script = append(f.script, r)
	f.mu.Unlock()
	return f
}

// Calls returns how many Chat requests were served.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *Fake) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	f.Requests = append(f.Requests, &cp)
	if f.Err != nil {
		return nil, f.Err
	}
	var out llm.Response
	switch {
	case len(f.script) > 0:
		out = *f.script[0]
		f.script = f.script[1:]
	case f.Fallback != nil:
		out = *f.Fallback
	default:
		out = llm.Response{Content: lastUser(req.Messages)}
	}
	out.Model = f.Model()
	out.Provider = f.Provider()
	if out.Role == "" {
		out.Role = llm.RoleAssistant
	}
	return &out, nil
}

func (f *Fake) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return f.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}}})
}

func (f *Fake) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)
	resp, err := f.Chat(ctx, req)
	if err != nil {
		return err
	}
	select {
	case output <- resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) Model() string {
	if f.ModelName == "" {
		return "fake-model"
	}
	return f.ModelName
}

func (f *Fake) Provider() llm.Provider { return llm.Provider("fake") }

func (f *Fake) Validate() error {
	if f.Model() == "" {
		return errors.New("model required")
	}
	return nil
}

func lastUser(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

var _ llm.Client = (*Fake)(nil)
