package notifications

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/payloads"
)

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestBuildOrderCreatedNotification(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	data := marshal(t, payloads.OrderCreatedEvent{
		OrderID:     orderID,
		UserID:      userID,
		TotalAmount: decimal.NewFromInt(10900),
	})

	notification, err := buildOrderCreated(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, notification.UserID)
	}
	if notification.Type != enums.NotificationTypeOrder {
		t.Fatalf("unexpected type %s", notification.Type)
	}
	if notification.OrderID == nil || *notification.OrderID != orderID {
		t.Fatal("expected order id on notification")
	}
	if !strings.Contains(notification.Message, "10900.00") {
		t.Fatalf("expected total in message, got %q", notification.Message)
	}
}

func TestBuildOrderCreatedRequiresUser(t *testing.T) {
	data := marshal(t, payloads.OrderCreatedEvent{OrderID: uuid.New()})
	if _, err := buildOrderCreated(data); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestBuildStatusChangedCancellationIncludesReason(t *testing.T) {
	reason := "customer unreachable"
	data := marshal(t, payloads.OrderStatusChangedEvent{
		OrderID:            uuid.New(),
		UserID:             uuid.New(),
		PreviousStatus:     enums.OrderStatusConfirmed,
		Status:             enums.OrderStatusCancelled,
		CancellationReason: &reason,
	})

	notification, err := buildStatusChanged(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification.Title != "Order cancelled" {
		t.Fatalf("unexpected title %q", notification.Title)
	}
	if !strings.Contains(notification.Message, reason) {
		t.Fatalf("expected reason in message, got %q", notification.Message)
	}
}

func TestBuildPaymentConfirmedNotification(t *testing.T) {
	data := marshal(t, payloads.OrderPaymentConfirmedEvent{
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		TotalAmount: decimal.NewFromInt(5400),
	})

	notification, err := buildPaymentConfirmed(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification.Type != enums.NotificationTypePayment {
		t.Fatalf("unexpected type %s", notification.Type)
	}
	if !strings.Contains(notification.Message, "5400.00") {
		t.Fatalf("expected amount in message, got %q", notification.Message)
	}
}
