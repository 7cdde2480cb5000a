package core

import (
	"context"
	"testing"
)

func TestTokenLimiter_TrimsOldest(t *testing.T) {
	p := TokenLimiter{MaxChars: 5}
	in := []Message{{Role: "user", Content: "12"}, {Role: "assistant", Content: "34"}, {Role: "user", Content: "5"}}
	out := p.Process(context.Background(), in)
	if len(out) != 3 {
		t.Fatalf("all five chars fit, got %#v", out)
	}

	p.MaxChars = 3
	out = p.Process(context.Background(), in)
	if len(out) != 2 || out[0].Content != "34" {
		t.Fatalf("expected [34 5], got %#v", out)
	}
}

func TestTokenLimiter_KeepsNewestEvenIfTooLong(t *testing.T) {
	p := TokenLimiter{MaxChars: 2}
	out := p.Process(context.Background(), []Message{{Content: "a"}, {Content: "toolong"}})
	if len(out) != 1 || out[0].Content != "toolong" {
		t.Fatalf("got %#v", out)
	}
}

func TestTokenLimiter_Disabled(t *testing.T) {
	in := []Message{{Content: "anything"}}
	if out := (TokenLimiter{}).Process(context.Background(), in); len(out) != 1 {
		t.Fatalf("got %#v", out)
	}
}

func TestToolCallFilter_RemovesToolMessages(t *testing.T) {
	f := ToolCallFilter{}
	in := []Message{{Role: "user", Content: "a"}, {Role: "tool", Content: "x"}, {Role: "assistant", Content: "b"}}
	out := f.Process(context.Background(), in)
	if len(out) != 2 {
		t.Fatalf("got %#v", out)
	}
	for _, m := range out {
		if m.Role == "tool" {
			t.Fatalf("tool message not removed")
		}
	}
}
