package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type claimStore struct {
	claimWon   bool
	claimErr   error
	lastKey    string
	lastTTL    time.Duration
	deletedKey string
}

func (c *claimStore) Get(context.Context, string) (string, error) { return "", nil }

func (c *claimStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	c.lastKey = key
	c.lastTTL = ttl
	return c.claimWon, c.claimErr
}

func (c *claimStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (c *claimStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		c.deletedKey = keys[0]
	}
	return nil
}

func newTestManager(t *testing.T, store *claimStore, ttl time.Duration) *Manager {
	t.Helper()
	manager, err := NewManager(store, ttl)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestFirstDeliveryClaimsTheEvent(t *testing.T) {
	store := &claimStore{claimWon: true}
	manager := newTestManager(t, store, 24*time.Hour)
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notifications-worker", eventID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if already {
		t.Fatal("first delivery must not look processed")
	}
	if want := "sf:idempotency:evt:processed:notifications-worker:" + eventID.String(); store.lastKey != want {
		t.Fatalf("key = %q, want %q", store.lastKey, want)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("ttl = %v", store.lastTTL)
	}
}

func TestRedeliveryIsReportedAsProcessed(t *testing.T) {
	manager := newTestManager(t, &claimStore{claimWon: false}, 12*time.Hour)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notifications-worker", uuid.New())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !already {
		t.Fatal("lost claim must report already processed")
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	manager := newTestManager(t, &claimStore{claimErr: errors.New("connection reset")}, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notifications-worker", uuid.New()); err == nil {
		t.Fatal("expected the store error")
	}
}

func TestDeleteReleasesTheClaim(t *testing.T) {
	store := &claimStore{}
	manager := newTestManager(t, store, time.Hour)
	eventID := uuid.New()

	if err := manager.Delete(context.Background(), "notifications-worker", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if want := "sf:idempotency:evt:processed:notifications-worker:" + eventID.String(); store.deletedKey != want {
		t.Fatalf("deleted key = %q, want %q", store.deletedKey, want)
	}
}

func TestManagerRejectsBadInputs(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error without store")
	}
	manager := newTestManager(t, &claimStore{claimWon: true}, time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notifications-worker", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}
