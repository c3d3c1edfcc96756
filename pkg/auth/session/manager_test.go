package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type sessionFake struct {
	data    map[string]string
	lastTTL time.Duration
}

func newSessionFake() *sessionFake {
	return &sessionFake{data: make(map[string]string)}
}

func (f *sessionFake) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.lastTTL = ttl
	return nil
}

func (f *sessionFake) Get(_ context.Context, key string) (string, error) {
	val, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (f *sessionFake) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *sessionFake) AccessSessionKey(accessID string) string {
	return "sf:session:access:" + accessID
}

func newFakeManager(fake *sessionFake, ttl time.Duration) *Manager {
	return &Manager{store: fake, keyer: fake, ttl: ttl}
}

func TestSessionLifecycle(t *testing.T) {
	fake := newSessionFake()
	manager := newFakeManager(fake, time.Hour)
	ctx := context.Background()

	if err := manager.Track(ctx, "access-123"); err != nil {
		t.Fatalf("track: %v", err)
	}
	if fake.lastTTL != time.Hour {
		t.Fatalf("ttl = %v, want 1h", fake.lastTTL)
	}
	if _, ok := fake.data["sf:session:access:access-123"]; !ok {
		t.Fatalf("session stored under wrong key, have %v", fake.data)
	}

	live, err := manager.HasSession(ctx, "access-123")
	if err != nil || !live {
		t.Fatalf("has session = (%v, %v), want (true, nil)", live, err)
	}

	if err := manager.Revoke(ctx, "access-123"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	live, err = manager.HasSession(ctx, "access-123")
	if err != nil {
		t.Fatalf("has session after revoke: %v", err)
	}
	if live {
		t.Fatal("revoked session must be gone")
	}
}

func TestSessionOpsRequireAccessID(t *testing.T) {
	manager := newFakeManager(newSessionFake(), time.Hour)
	ctx := context.Background()

	if err := manager.Track(ctx, " "); err == nil {
		t.Fatal("track must reject blank access id")
	}
	if err := manager.Revoke(ctx, ""); err == nil {
		t.Fatal("revoke must reject blank access id")
	}
	if _, err := manager.HasSession(ctx, ""); err == nil {
		t.Fatal("has-session must reject blank access id")
	}
}
