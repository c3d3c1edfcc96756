package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/types"
)

// PlaceOrderInput carries the validated checkout request.
type PlaceOrderInput struct {
	PaymentMethod    enums.PaymentMethod
	PaymentReference *string
	DeliveryAddress  types.Address
	Notes            *string
}

// PlaceOrderResult is returned to the controller after a committed checkout.
type PlaceOrderResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}
