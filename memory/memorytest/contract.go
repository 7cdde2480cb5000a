// Package memorytest holds behaviour checks shared by every memory backend.
package memorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KamdynS/agentcrew/memory"
)

// RunStoreContract exercises Put/Get/Keys/Delete against s. Keys written
// use the given prefix so live backends can share a database.
func RunStoreContract(t *testing.T, s memory.Store, prefix string) {
	t.Helper()
	ctx := context.Background()

	if err := s.Put(ctx, prefix+"k1", []byte("v1"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, prefix+"k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("want v1 got %q", got)
	}

	_ = s.Put(ctx, prefix+"k2", []byte("v2"), time.Minute)
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("want 2 keys got %v", keys)
	}

	if err := s.Delete(ctx, prefix+"k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, prefix+"k1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_ = s.Delete(ctx, prefix+"k2")
}

// RunTranscriptContract checks ordering and reset of session logs.
func RunTranscriptContract(t *testing.T, tr memory.Transcript, session string) {
	t.Helper()
	ctx := context.Background()

	if err := tr.Append(ctx, session, memory.Message{Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tr.Append(ctx, session, memory.Message{Role: "assistant", Content: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	msgs, err := tr.Messages(ctx, session)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
	if msgs[0].Timestamp == 0 {
		t.Fatalf("timestamp not stamped")
	}

	if err := tr.Reset(ctx, session); err != nil {
		t.Fatalf("reset: %v", err)
	}
	msgs, err = tr.Messages(ctx, session)
	if err != nil {
		t.Fatalf("messages after reset: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(msgs))
	}
}
