// Package memory holds the key/value and transcript stores shared by agents
// and the model response cache.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("memory: key not found")

// Store is a byte-oriented key/value store with optional expiry.
type Store interface {
	// Put saves value under key. ttl <= 0 keeps the value until deleted.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error

	// Keys lists live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Transcript keeps an ordered message log per session.
type Transcript interface {
	Append(ctx context.Context, session string, msg Message) error
	Messages(ctx context.Context, session string) ([]Message, error)
	Reset(ctx context.Context, session string) error
}

// Message is one transcript entry.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}
