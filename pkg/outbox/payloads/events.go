package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/enums"
)

// OrderLine is the per-item slice of an order event payload.
type OrderLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// OrderCreatedEvent carries everything the notifier needs to render the
// confirmation message without a read back into this service.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Items         []OrderLine         `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// OrderStatusChangedEvent is emitted on every admin status update.
type OrderStatusChangedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	UserID             uuid.UUID         `json:"user_id"`
	PreviousStatus     enums.OrderStatus `json:"previous_status"`
	Status             enums.OrderStatus `json:"status"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	ChangedAt          time.Time         `json:"changed_at"`
}

// OrderPaymentConfirmedEvent reports a manual settlement confirmation.
type OrderPaymentConfirmedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	ConfirmedAt   time.Time           `json:"confirmed_at"`
}
