package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
)

// Line is one product decrement requested by a checkout.
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
}

// Ledger is the sole writer of product stock. Decrements run inside the
// caller's transaction; a failed guard rolls the whole checkout back.
type Ledger struct{}

// NewLedger exposes the default stock ledger implementation.
func NewLedger() *Ledger {
	return &Ledger{}
}

// DecrementForOrder applies a guarded decrement per line. The WHERE guard
// keeps stock_quantity from ever going negative; zero rows affected means
// another checkout won the remaining units.
func (l *Ledger) DecrementForOrder(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock_quantity = stock_quantity - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock_quantity >= ?
		`, line.Quantity, line.ProductID, line.Quantity)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			name := line.ProductName
			if name == "" {
				name = line.ProductID.String()
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", name)).WithDetails(map[string]any{
				"product_id": line.ProductID,
				"requested":  line.Quantity,
			})
		}
	}
	return nil
}

// RestoreForOrder returns units to the shelf when an order is cancelled
// before fulfillment. Runs inside the caller's transaction.
func (l *Ledger) RestoreForOrder(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock_quantity = stock_quantity + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, line.Quantity, line.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
		}
	}
	return nil
}
