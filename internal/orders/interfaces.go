package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table after
// checkout has created the row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	AdminList(ctx context.Context, params pagination.Params, filters AdminListFilters) (*AdminOrderList, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	MarkUserDeleted(ctx context.Context, userID uuid.UUID) (int64, error)
}
