package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/pagination"
	"github.com/tastebudhq/storefront-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL,
  total_amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  payment_reference TEXT,
  delivery_address TEXT NOT NULL,
  notes TEXT,
  cancellation_reason TEXT,
  is_user_deleted BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_image TEXT,
  price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func testAddress() types.Address {
	return types.Address{
		Street:  "14 Adeola Odeku St",
		City:    "Victoria Island",
		State:   "Lagos",
		ZipCode: "101241",
		Country: "NG",
	}
}

type seedOpts struct {
	status        enums.OrderStatus
	paymentStatus enums.PaymentStatus
	userDeleted   bool
	createdAt     time.Time
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, opts seedOpts) uuid.UUID {
	t.Helper()
	if opts.status == "" {
		opts.status = enums.OrderStatusPending
	}
	if opts.paymentStatus == "" {
		opts.paymentStatus = enums.PaymentStatusPending
	}
	order := models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Subtotal:        decimal.NewFromInt(9400),
		DeliveryFee:     decimal.NewFromInt(1500),
		TotalAmount:     decimal.NewFromInt(10900),
		Status:          opts.status,
		PaymentMethod:   enums.PaymentMethodCash,
		PaymentStatus:   opts.paymentStatus,
		DeliveryAddress: testAddress(),
		IsUserDeleted:   opts.userDeleted,
	}
	if !opts.createdAt.IsZero() {
		order.CreatedAt = opts.createdAt
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}

func seedItem(t *testing.T, db *gorm.DB, orderID uuid.UUID, name string) {
	t.Helper()
	item := models.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   uuid.New(),
		ProductName: name,
		Price:       decimal.NewFromInt(3500),
		Quantity:    2,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}
}

func TestListForUserHidesClearedOrders(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().Add(-time.Hour)
	older := seedOrder(t, db, userID, seedOpts{createdAt: base})
	newer := seedOrder(t, db, userID, seedOpts{createdAt: base.Add(time.Minute)})
	seedOrder(t, db, userID, seedOpts{userDeleted: true, createdAt: base.Add(2 * time.Minute)})
	seedOrder(t, db, uuid.New(), seedOpts{createdAt: base})

	rows, err := repo.ListForUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 visible orders, got %d", len(rows))
	}
	if rows[0].ID != newer || rows[1].ID != older {
		t.Fatalf("expected newest first ordering")
	}
}

func TestFindByIDForUserScopesOwnership(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	orderID := seedOrder(t, db, userID, seedOpts{})
	seedItem(t, db, orderID, "Jollof Rice")

	order, err := repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].ProductName != "Jollof Rice" {
		t.Fatalf("expected preloaded items, got %+v", order.Items)
	}

	if _, err := repo.FindByIDForUser(ctx, orderID, uuid.New()); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected not found for another user, got %v", err)
	}

	// clearing history hides the listing, not the direct lookup
	clearedID := seedOrder(t, db, userID, seedOpts{userDeleted: true})
	cleared, err := repo.FindByIDForUser(ctx, clearedID, userID)
	if err != nil {
		t.Fatalf("expected cleared order to resolve by ID, got %v", err)
	}
	if !cleared.IsUserDeleted {
		t.Fatalf("expected the cleared flag to survive the lookup")
	}
}

func TestAdminListPaginatesAndFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, userID, seedOpts{createdAt: base.Add(time.Duration(i) * time.Minute)})
	}
	seedOrder(t, db, userID, seedOpts{
		status:    enums.OrderStatusDelivered,
		createdAt: base.Add(10 * time.Minute),
	})
	seedOrder(t, db, userID, seedOpts{userDeleted: true, createdAt: base.Add(11 * time.Minute)})

	page, err := repo.AdminList(ctx, pagination.Params{Limit: 3}, AdminListFilters{})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page.Orders) != 3 || page.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d rows", len(page.Orders))
	}

	rest, err := repo.AdminList(ctx, pagination.Params{Limit: 3, Cursor: page.NextCursor}, AdminListFilters{})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Orders) != 2 || rest.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d rows cursor %q", len(rest.Orders), rest.NextCursor)
	}

	delivered := enums.OrderStatusDelivered
	filtered, err := repo.AdminList(ctx, pagination.Params{}, AdminListFilters{Status: &delivered})
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(filtered.Orders) != 1 || filtered.Orders[0].Status != delivered {
		t.Fatalf("expected single delivered order, got %d", len(filtered.Orders))
	}
}

func TestMarkUserDeletedCountsOnlyVisibleRows(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedOrder(t, db, userID, seedOpts{})
	seedOrder(t, db, userID, seedOpts{})
	seedOrder(t, db, userID, seedOpts{userDeleted: true})
	seedOrder(t, db, uuid.New(), seedOpts{})

	updated, err := repo.MarkUserDeleted(ctx, userID)
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}

	// idempotent second call touches nothing
	updated, err = repo.MarkUserDeleted(ctx, userID)
	if err != nil {
		t.Fatalf("second mark deleted: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 rows on repeat, got %d", updated)
	}

	rows, err := repo.ListForUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty listing after clear, got %d", len(rows))
	}
}

func TestFindStalePendingFiltersByStatusAndAge(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	cutoff := base.Add(48 * time.Hour)

	stale := seedOrder(t, db, uuid.New(), seedOpts{createdAt: base})
	seedOrder(t, db, uuid.New(), seedOpts{createdAt: cutoff.Add(time.Hour)})
	seedOrder(t, db, uuid.New(), seedOpts{status: enums.OrderStatusConfirmed, createdAt: base})
	seedOrder(t, db, uuid.New(), seedOpts{paymentStatus: enums.PaymentStatusPaid, createdAt: base})

	ids, err := repo.FindStalePending(ctx, cutoff)
	if err != nil {
		t.Fatalf("find stale pending: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 stale order, got %d", len(ids))
	}
	if ids[0] != stale {
		t.Fatalf("expected %s got %s", stale, ids[0])
	}
}
