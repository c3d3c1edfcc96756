package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tastebudhq/storefront-backend/internal/cart"
	"github.com/tastebudhq/storefront-backend/internal/checkout"
	"github.com/tastebudhq/storefront-backend/internal/notifications"
	"github.com/tastebudhq/storefront-backend/internal/orders"
	pkgAuth "github.com/tastebudhq/storefront-backend/pkg/auth"
	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/pagination"
	"github.com/tastebudhq/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCartService struct{}

func (stubCartService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID, Items: []models.CartItem{}}, nil
}

func (stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	return &models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: quantity}, nil
}

func (stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	return &models.CartItem{ID: itemID, Quantity: quantity}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (stubCartService) Totals(ctx context.Context, userID uuid.UUID) (cart.Totals, error) {
	return cart.Totals{}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
	return &checkout.PlaceOrderResult{OrderID: uuid.New()}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, UserID: userID}, nil
}

func (stubOrdersService) MarkPaid(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, UserID: userID}, nil
}

func (stubOrdersService) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubOrdersService) AdminList(ctx context.Context, params pagination.Params, filters orders.AdminListFilters) (*orders.AdminOrderList, error) {
	return &orders.AdminOrderList{}, nil
}

func (stubOrdersService) AdminConfirmPayment(ctx context.Context, adminID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) AdminSetStatus(ctx context.Context, adminID, orderID uuid.UUID, input orders.AdminStatusUpdate) (*models.Order, error) {
	return &models.Order{ID: orderID, Status: input.Status}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:               cfg,
		Logger:               logg,
		DB:                   stubPinger{},
		Redis:                (*redis.Client)(nil),
		Sessions:             stubSessionChecker{},
		CartService:          stubCartService{},
		CheckoutService:      stubCheckoutService{},
		OrdersService:        stubOrdersService{},
		NotificationsService: stubNotificationsService{},
	})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAllowsAuthenticatedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestNotificationRoutesRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestClearHistoryRouteIsUserScoped(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/clear-history", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
