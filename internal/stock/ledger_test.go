package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
)

func TestDecrementForOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	productA := seedProduct(t, db, "Jollof Rice", 5)
	productB := seedProduct(t, db, "Meat Pie", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.DecrementForOrder(ctx, tx, []Line{
			{ProductID: productA, ProductName: "Jollof Rice", Quantity: 3},
			{ProductID: productB, ProductName: "Meat Pie", Quantity: 1},
		})
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}

	if got := loadStock(t, db, productA); got != 2 {
		t.Fatalf("expected product a stock 2, got %d", got)
	}
	if got := loadStock(t, db, productB); got != 0 {
		t.Fatalf("expected product b stock 0, got %d", got)
	}
}

func TestDecrementForOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	productA := seedProduct(t, db, "Jollof Rice", 5)
	productB := seedProduct(t, db, "Meat Pie", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.DecrementForOrder(ctx, tx, []Line{
			{ProductID: productA, ProductName: "Jollof Rice", Quantity: 2},
			{ProductID: productB, ProductName: "Meat Pie", Quantity: 2},
		})
	})
	if err == nil {
		t.Fatalf("expected insufficient stock error")
	}
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock code, got %v", err)
	}

	// the failed line aborts the transaction, so the first decrement
	// must not stick either
	if got := loadStock(t, db, productA); got != 5 {
		t.Fatalf("expected product a stock unchanged at 5, got %d", got)
	}
	if got := loadStock(t, db, productB); got != 1 {
		t.Fatalf("expected product b stock unchanged at 1, got %d", got)
	}
}

func TestDecrementForOrderLastUnitAdmitsExactlyOne(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	product := seedProduct(t, db, "Suya Platter", 1)
	line := []Line{{ProductID: product, ProductName: "Suya Platter", Quantity: 1}}

	first := db.Transaction(func(tx *gorm.DB) error {
		return ledger.DecrementForOrder(ctx, tx, line)
	})
	second := db.Transaction(func(tx *gorm.DB) error {
		return ledger.DecrementForOrder(ctx, tx, line)
	})

	if first != nil {
		t.Fatalf("first checkout should win: %v", first)
	}
	if second == nil {
		t.Fatalf("second checkout should fail on insufficient stock")
	}
	if got := loadStock(t, db, product); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestDecrementForOrderRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	product := seedProduct(t, db, "Chin Chin", 4)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.DecrementForOrder(ctx, tx, []Line{{ProductID: product, Quantity: 0}})
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestDecrementForOrderRequiresTransaction(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	err := ledger.DecrementForOrder(context.Background(), nil, []Line{{ProductID: uuid.New(), Quantity: 1}})
	if err == nil {
		t.Fatalf("expected error without transaction")
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  price NUMERIC NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(products).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.NewFromInt(2500),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.StockQuantity
}
