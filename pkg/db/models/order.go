package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/types"
)

// Order is the immutable financial snapshot of a completed checkout.
// Status and payment status evolve independently after creation; every
// other column is frozen at order time.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee        decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	TotalAmount        decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	PaymentReference   *string             `gorm:"column:payment_reference"`
	DeliveryAddress    types.Address       `gorm:"column:delivery_address;type:jsonb;not null"`
	Notes              *string             `gorm:"column:notes"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	IsUserDeleted      bool                `gorm:"column:is_user_deleted;not null;default:false"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
