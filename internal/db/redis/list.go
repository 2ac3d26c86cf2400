package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
)

// KEYS[1] list; ARGV[1] value, ARGV[2] max length, ARGV[3] ttl ms (0 keeps the current TTL).
const appendCappedScript = `
local n = redis.call('RPUSH', KEYS[1], ARGV[1])
local cap = tonumber(ARGV[2])
if n > cap then
  redis.call('LTRIM', KEYS[1], -cap, -1)
  n = cap
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return n
`

// AppendCapped pushes value and trims the list to maxLen in one script call,
// so concurrent writers to the same list never lose entries to a
// read-then-trim race.
func (s *Store) AppendCapped(
	ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration,
) (int, error) {
	if maxLen <= 0 {
		return 0, fmt.Errorf("maxLen must be positive")
	}
	args := []string{
		string(value),
		strconv.Itoa(maxLen),
		strconv.FormatInt(max(ttl.Milliseconds(), 0), 10),
	}
	n, err := s.append.Exec(ctx, s.client, []string{key}, args).AsInt64()
	if err != nil {
		return 0, db.NewError(db.OpEval, key, err)
	}
	return int(n), nil
}

// LRange returns list elements between start and stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	items, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, db.NewError(db.OpLRange, key, err)
	}
	return items, nil
}

// LTrim keeps only the elements between start and stop inclusive.
func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	cmd := s.b().Ltrim().Key(key).Start(start).Stop(stop).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return db.NewError(db.OpLTrim, key, err)
	}
	return nil
}
