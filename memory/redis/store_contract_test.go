//go:build adapters_redis

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/KamdynS/agentcrew/memory/memorytest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	s, err := Open(context.Background(), url, "agentcrew-test", time.Minute)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract_Redis(t *testing.T) {
	memorytest.RunStoreContract(t, openTestStore(t), "contract:")
}

func TestTranscriptContract_Redis(t *testing.T) {
	memorytest.RunTranscriptContract(t, openTestStore(t), "contract-session")
}
