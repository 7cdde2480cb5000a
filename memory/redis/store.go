// Package redis backs memory.Store and memory.Transcript with Redis so agent
// transcripts and cached model responses survive restarts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KamdynS/agentcrew/memory"
	rds "github.com/redis/go-redis/v9"
)

// Store namespaces every key under prefix.
type Store struct {
	client *rds.Client
	prefix string
	// transcriptTTL refreshes the expiry of a session log on each append.
	transcriptTTL time.Duration
}

// NewStore wraps an existing client.
func NewStore(client *rds.Client, prefix string, transcriptTTL time.Duration) *Store {
	return &Store{client: client, prefix: prefix, transcriptTTL: transcriptTTL}
}

// Open parses a redis:// URL, pings the server and returns a Store.
func Open(ctx context.Context, url, prefix string, transcriptTTL time.Duration) (*Store, error) {
	opts, err := rds.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := rds.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStore(client, prefix, transcriptTTL), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *Store) logKey(session string) string { return s.key("transcript:" + session) }

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, rds.Nil) {
		return nil, memory.ErrNotFound
	}
	return b, err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, full+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if s.prefix != "" {
				k = strings.TrimPrefix(k, s.prefix+":")
			}
			keys = append(keys, k)
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *Store) Append(ctx context.Context, session string, msg memory.Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := s.logKey(session)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, b)
	if s.transcriptTTL > 0 {
		pipe.Expire(ctx, key, s.transcriptTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Messages(ctx context.Context, session string) ([]memory.Message, error) {
	vals, err := s.client.LRange(ctx, s.logKey(session), 0, -1).Result()
	if err != nil && !errors.Is(err, rds.Nil) {
		return nil, err
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("decode transcript entry: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *Store) Reset(ctx context.Context, session string) error {
	return s.client.Del(ctx, s.logKey(session)).Err()
}

var (
	_ memory.Store      = (*Store)(nil)
	_ memory.Transcript = (*Store)(nil)
)
