package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KamdynS/agentcrew/memory"
)

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Store is a process-local memory.Store and memory.Transcript.
type Store struct {
	mu    sync.RWMutex
	data  map[string]entry
	logs  map[string][]memory.Message
	clock func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data:  make(map[string]entry),
		logs:  make(map[string][]memory.Message),
		clock: time.Now,
	}
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.clock().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok || e.expired(s.clock()) {
		return nil, memory.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k, e := range s.data {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Append(ctx context.Context, session string, msg memory.Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = s.clock().Unix()
	}
	s.mu.Lock()
	s.logs[session] = append(s.logs[session], msg)
	s.mu.Unlock()
	return nil
}

func (s *Store) Messages(ctx context.Context, session string) ([]memory.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]memory.Message(nil), s.logs[session]...), nil
}

func (s *Store) Reset(ctx context.Context, session string) error {
	s.mu.Lock()
	delete(s.logs, session)
	s.mu.Unlock()
	return nil
}

var (
	_ memory.Store      = (*Store)(nil)
	_ memory.Transcript = (*Store)(nil)
)
