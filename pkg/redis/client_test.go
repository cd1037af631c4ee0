package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCommands()
	client := &Client{cmd: mem}

	for want := int64(1); want <= 2; want++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:10.0.0.1", 2, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed || count != want {
			t.Fatalf("hit %d: allowed=%v count=%d", want, allowed, count)
		}
	}
	if allowed, _, _ := client.FixedWindowAllow(ctx, "login:ip:10.0.0.1", 2, time.Minute); allowed {
		t.Fatalf("third hit should exceed the window")
	}
	if ttl := mem.ttl["sf:rate_limit:login:ip:10.0.0.1"]; ttl != time.Minute {
		t.Fatalf("window ttl = %s", ttl)
	}
}

func TestIncrWithTTLKeepsFirstExpiry(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCommands()
	client := &Client{cmd: mem}
	key := client.CounterKey("orders:20260101")

	if _, err := client.IncrWithTTL(ctx, key, 48*time.Hour); err != nil {
		t.Fatalf("incr: %v", err)
	}
	got, err := client.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 got %d", got)
	}
	if mem.ttl[key] != 48*time.Hour {
		t.Fatalf("later increments must not move the expiry, got %s", mem.ttl[key])
	}
}

func TestIncrWithTTLReportsExpireFailure(t *testing.T) {
	mem := newMemoryCommands()
	mem.expireErr = errors.New("READONLY")
	client := &Client{cmd: mem}

	n, err := client.IncrWithTTL(context.Background(), "sf:counter:x", time.Minute)
	if err == nil || n != 1 {
		t.Fatalf("expected count 1 with error, got n=%d err=%v", n, err)
	}
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMemoryCommands()}

	ok, err := client.SetNX(ctx, "sf:lock:cron", "token", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	if ok, _ = client.SetNX(ctx, "sf:lock:cron", "other", time.Minute); ok {
		t.Fatalf("expected second setnx to lose")
	}
	if err := client.Del(ctx, "sf:lock:cron"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "sf:lock:cron"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestDisconnectedClient(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
}

func TestKeyspace(t *testing.T) {
	var keys Keyspace
	cases := map[string]string{
		keys.IdempotencyKey("orders:create", "abc"): "sf:idempotency:orders:create:abc",
		keys.RateLimitKey("scope"):                  "sf:rate_limit:scope",
		keys.CounterKey("sales:20260101"):           "sf:counter:sales:20260101",
		keys.LockKey(" "):                           "sf:lock",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %s want %s", got, want)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 7, DB: 2, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.PoolSize != 7 || opts.DB != 2 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/3", DB: 9, PoolSize: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "secret" || opts.PoolSize != 4 {
		t.Fatalf("url settings should win over config, got %+v", opts)
	}
}

type memoryCommands struct {
	data      map[string]string
	counters  map[string]int64
	ttl       map[string]time.Duration
	expireErr error
}

func newMemoryCommands() *memoryCommands {
	return &memoryCommands{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttl:      map[string]time.Duration{},
	}
}

func (m *memoryCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memoryCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	if _, set := m.ttl[key]; set {
		return redis.NewBoolResult(false, nil)
	}
	m.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttl, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
