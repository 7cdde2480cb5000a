package llm_test

import (
	"context"
	"testing"

	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/llm/llmtest"
)

type vendorFake struct {
	*llmtest.Fake
	vendor llm.Provider
}

func (v vendorFake) Provider() llm.Provider { return v.vendor }

func TestRouterSelectsByModel(t *testing.T) {
	oa := vendorFake{llmtest.New("from openai"), llm.ProviderOpenAI}
	an := vendorFake{llmtest.New("from anthropic"), llm.ProviderAnthropic}
	r, err := llm.NewRouter(oa, an)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	out, err := r.Chat(context.Background(), &llm.ChatRequest{Model: llm.ModelClaude35Haiku})
	if err != nil || out.Content != "from anthropic" {
		t.Fatalf("anthropic route: %v %+v", err, out)
	}
	out, err = r.Chat(context.Background(), &llm.ChatRequest{})
	if err != nil || out.Content != "from openai" {
		t.Fatalf("default route: %v %+v", err, out)
	}
	if r.Provider() != llm.ProviderOpenAI {
		t.Fatalf("default provider %s", r.Provider())
	}
}

func TestRouterMissingProvider(t *testing.T) {
	r, _ := llm.NewRouter(vendorFake{llmtest.New(), llm.ProviderOpenAI})
	if _, err := r.Chat(context.Background(), &llm.ChatRequest{Model: "claude-3-5-haiku-latest"}); err == nil {
		t.Fatalf("expected error for unconfigured provider")
	}
}

func TestRouterRejectsDuplicates(t *testing.T) {
	if _, err := llm.NewRouter(vendorFake{llmtest.New(), llm.ProviderOpenAI}, vendorFake{llmtest.New(), llm.ProviderOpenAI}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := llm.NewRouter(); err == nil {
		t.Fatalf("expected empty error")
	}
}
