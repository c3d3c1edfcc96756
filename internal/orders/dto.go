package orders

import (
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
)

// AdminListFilters describe the inputs supported by the admin orders list.
type AdminListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// AdminOrderList wraps the paginated orders plus the next page cursor.
type AdminOrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// AdminStatusUpdate carries the validated admin status change request.
type AdminStatusUpdate struct {
	Status             enums.OrderStatus
	CancellationReason *string
}
