package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func isScriptCall(cmd []string) bool {
	return cmd[0] == "EVALSHA" || cmd[0] == "EVAL"
}

func TestAppendCapped_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			// EVALSHA sha numkeys key value cap ttl
			return isScriptCall(cmd) && len(cmd) == 7 &&
				cmd[3] == "sess:1:turns" && cmd[4] == `{"t":1}` &&
				cmd[5] == "10" && cmd[6] == "3600000"
		})).
		Return(mock.Result(mock.RedisInt64(10)))

	s := NewStoreForTest(c)
	n, err := s.AppendCapped(context.Background(), "sess:1:turns", []byte(`{"t":1}`), 10, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 10 {
		t.Errorf("n = %d, want 10", n)
	}
}

func TestAppendCapped_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isScriptCall)).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.AppendCapped(context.Background(), "k", []byte("v"), 10, 0)
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestAppendCapped_InvalidCap(t *testing.T) {
	s := NewStoreForTest(nil)
	if _, err := s.AppendCapped(context.Background(), "k", []byte("v"), 0, 0); err == nil {
		t.Fatal("expected error for zero cap")
	}
}

func TestLRange_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LRANGE", "k", "-3", "-1")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisBlobString("a"),
			mock.RedisBlobString("b"),
		)))

	s := NewStoreForTest(c)
	items, err := s.LRange(context.Background(), "k", -3, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0] != "a" || items[1] != "b" {
		t.Errorf("items = %v", items)
	}
}

func TestLTrim_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LTRIM", "k", "-10", "-1")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.LTrim(context.Background(), "k", -10, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
