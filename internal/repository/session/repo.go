// Package session stores session ownership and the capped turn history.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
)

// store is the consumer interface for sessions (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	AppendCapped(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) (int, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Repo keeps sessions in Redis: a string key holding the owner and a
// list of JSON turns, oldest first.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a session repository. ttl is refreshed on every append.
func New(s store, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Create opens a session scoped to owner and returns its ID.
func (r *Repo) Create(ctx context.Context, owner string) (string, error) {
	if owner == "" {
		return "", domain.InvalidInputf("owner is required")
	}
	id := uuid.NewString()
	if err := r.store.SetWithTTL(ctx, r.ownerKey(id), []byte(owner), r.ttl); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Owner resolves the owner a session is scoped to.
func (r *Repo) Owner(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", domain.InvalidInputf("session ID is required")
	}
	data, err := r.store.Get(ctx, r.ownerKey(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return string(data), nil
}

// AppendTurn stores t and trims the history to the newest maxTurns, atomically.
func (r *Repo) AppendTurn(ctx context.Context, t conversation.Turn, maxTurns int) error {
	if err := t.Validate(); err != nil {
		return domain.InvalidInputf("turn: %v", err)
	}
	if maxTurns <= 0 {
		maxTurns = conversation.MaxTurns
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if _, err := r.store.AppendCapped(ctx, r.turnsKey(t.SessionID), data, maxTurns, r.ttl); err != nil {
		return fmt.Errorf("append turn %s: %w", t.SessionID, err)
	}
	if r.ttl > 0 {
		if err := r.store.Expire(ctx, r.ownerKey(t.SessionID), r.ttl); err != nil {
			return fmt.Errorf("refresh session %s: %w", t.SessionID, err)
		}
	}
	return nil
}

// RecentTurns returns up to n newest turns, oldest first. Undecodable
// entries are skipped.
func (r *Repo) RecentTurns(ctx context.Context, sessionID string, n int) ([]conversation.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.store.LRange(ctx, r.turnsKey(sessionID), int64(-n), -1)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", sessionID, err)
	}
	turns := make([]conversation.Turn, 0, len(raw))
	for _, s := range raw {
		var t conversation.Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// TrimTo keeps only the newest n turns.
func (r *Repo) TrimTo(ctx context.Context, sessionID string, n int) error {
	if n <= 0 {
		return domain.InvalidInputf("trim size must be positive")
	}
	if err := r.store.LTrim(ctx, r.turnsKey(sessionID), int64(-n), -1); err != nil {
		return fmt.Errorf("trim history %s: %w", sessionID, err)
	}
	return nil
}

func (r *Repo) ownerKey(id string) string { return r.prefix + "session:" + id }

func (r *Repo) turnsKey(id string) string { return r.prefix + "session:" + id + ":turns" }
