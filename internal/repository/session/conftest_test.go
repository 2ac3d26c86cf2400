package session

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
)

// mockStore implements the consumer interface for tests. Lists are kept
// in memory so append/trim/range behave like Redis.
type mockStore struct {
	kv    map[string][]byte
	lists map[string][]string

	getFn    func(ctx context.Context, key string) ([]byte, error)
	appendFn func(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) (int, error)
	expired  map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{kv: map[string][]byte{}, lists: map[string][]string{}, expired: map[string]time.Duration{}}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.kv[key] = value
	m.expired[key] = ttl
	return nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.expired[key] = ttl
	return nil
}

func (m *mockStore) AppendCapped(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) (int, error) {
	if m.appendFn != nil {
		return m.appendFn(ctx, key, value, maxLen, ttl)
	}
	l := append(m.lists[key], string(value))
	if len(l) > maxLen {
		l = l[len(l)-maxLen:]
	}
	m.lists[key] = l
	m.expired[key] = ttl
	return len(l), nil
}

func (m *mockStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := m.lists[key]
	if len(l) == 0 {
		return []string{}, nil
	}
	lo, hi := resolve(start, len(l)), resolve(stop, len(l))
	if lo > hi {
		return []string{}, nil
	}
	return append([]string(nil), l[lo:hi+1]...), nil
}

func (m *mockStore) LTrim(_ context.Context, key string, start, stop int64) error {
	l := m.lists[key]
	if len(l) == 0 {
		return nil
	}
	lo, hi := resolve(start, len(l)), resolve(stop, len(l))
	if lo > hi {
		m.lists[key] = nil
		return nil
	}
	m.lists[key] = l[lo : hi+1]
	return nil
}

// resolve maps a Redis list index (negative counts from the tail) into [0, n-1].
func resolve(i int64, n int) int {
	idx := int(i)
	if idx < 0 {
		idx += n
	}
	return min(max(idx, 0), n-1)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms, "shopsearch:", time.Hour), ms
}
