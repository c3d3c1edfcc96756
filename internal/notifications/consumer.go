package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/idempotency"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches order events and writes feed entries for the customer.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	builder, ok := builders[eventType]
	if !ok {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := builder(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"user_id": notification.UserID.String(),
		"type":    notification.Type,
	})
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to persist notification", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification created")
	return processResult{ack: true}
}

type notificationBuilder func(data json.RawMessage) (*models.Notification, error)

var builders = map[enums.OutboxEventType]notificationBuilder{
	enums.EventOrderCreated:          buildOrderCreated,
	enums.EventOrderStatusChanged:    buildStatusChanged,
	enums.EventOrderPaymentConfirmed: buildPaymentConfirmed,
}

func buildOrderCreated(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse order created payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id missing")
	}
	return &models.Notification{
		UserID:  payload.UserID,
		OrderID: &payload.OrderID,
		Type:    enums.NotificationTypeOrder,
		Title:   "Order placed",
		Message: fmt.Sprintf("We received your order for %s. We'll let you know when it is confirmed.", payload.TotalAmount.StringFixed(2)),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildStatusChanged(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse status changed payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id missing")
	}
	title := "Order update"
	message := fmt.Sprintf("Your order is now %s.", payload.Status)
	if payload.Status == enums.OrderStatusCancelled {
		title = "Order cancelled"
		message = "Your order has been cancelled."
		if payload.CancellationReason != nil && *payload.CancellationReason != "" {
			message = fmt.Sprintf("Your order has been cancelled. Reason: %s", *payload.CancellationReason)
		}
	}
	if payload.Status == enums.OrderStatusDelivered {
		title = "Order delivered"
		message = "Your order has been delivered. Enjoy!"
	}
	return &models.Notification{
		UserID:  payload.UserID,
		OrderID: &payload.OrderID,
		Type:    enums.NotificationTypeOrder,
		Title:   title,
		Message: message,
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildPaymentConfirmed(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderPaymentConfirmedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse payment confirmed payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id missing")
	}
	return &models.Notification{
		UserID:  payload.UserID,
		OrderID: &payload.OrderID,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment confirmed",
		Message: fmt.Sprintf("Your payment of %s has been confirmed.", payload.TotalAmount.StringFixed(2)),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/orders/%s", orderID)
	return &link
}
