package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/KamdynS/agentcrew/memory"
)

// CachedClient memoises Chat responses in a memory.Store keyed by a hash of
// the full request. Streaming calls pass through uncached.
type CachedClient struct {
	Client
	store memory.Store
	ttl   time.Duration
}

// NewCachedClient wraps inner. ttl <= 0 caches without expiry.
func NewCachedClient(inner Client, store memory.Store, ttl time.Duration) *CachedClient {
	return &CachedClient{Client: inner, store: store, ttl: ttl}
}

// CacheKey derives the store key for req as served by provider/model.
func CacheKey(provider Provider, model string, req *ChatRequest) (string, error) {
	b, err := json.Marshal(struct {
		Provider Provider     `json:"p"`
		Model    string       `json:"m"`
		Req      *ChatRequest `json:"r"`
	}{provider, model, req})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return "llm:" + hex.EncodeToString(sum[:]), nil
}

func (c *CachedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	key, err := CacheKey(c.Client.Provider(), c.Client.Model(), req)
	if err != nil {
		return c.Client.Chat(ctx, req)
	}
	if raw, err := c.store.Get(ctx, key); err == nil {
		var resp Response
		if json.Unmarshal(raw, &resp) == nil {
			if resp.Meta == nil {
				resp.Meta = map[string]string{}
			}
			resp.Meta["cache"] = "hit"
			return &resp, nil
		}
	}

	resp, err := c.Client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(resp); err == nil {
		_ = c.store.Put(ctx, key, raw, c.ttl)
	}
	return resp, nil
}

func (c *CachedClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return c.Chat(ctx, &ChatRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}})
}
