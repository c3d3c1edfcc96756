package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tastebudhq/storefront-backend/api/controllers"
	"github.com/tastebudhq/storefront-backend/api/middleware"
	"github.com/tastebudhq/storefront-backend/internal/cart"
	checkoutsvc "github.com/tastebudhq/storefront-backend/internal/checkout"
	"github.com/tastebudhq/storefront-backend/internal/notifications"
	"github.com/tastebudhq/storefront-backend/internal/orders"
	"github.com/tastebudhq/storefront-backend/pkg/auth/session"
	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   db.Pinger
	Redis                *redis.Client
	Sessions             session.AccessSessionChecker
	CartService          cart.Service
	CheckoutService      checkoutsvc.Service
	OrdersService        orders.Service
	NotificationsService notifications.Service
	MetricsHandler       http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", time.Minute, 60, 10)

	readyChecks := []controllers.Pinger{deps.DB}
	if deps.Redis != nil {
		readyChecks = append(readyChecks, deps.Redis)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks...))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(deps.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.CartService, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).
			Post("/checkout/place-order", controllers.CheckoutPlaceOrder(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Delete("/clear-history", controllers.OrderClearHistory(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/mark-paid", controllers.OrderMarkPaid(deps.OrdersService, logg))
		})

		if deps.NotificationsService != nil {
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationList(deps.NotificationsService, logg))
				r.Post("/read-all", controllers.NotificationMarkAllRead(deps.NotificationsService, logg))
				r.Post("/{notificationId}/read", controllers.NotificationMarkRead(deps.NotificationsService, logg))
			})
		}
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.OrdersService, logg))
			r.Put("/{orderId}/status", controllers.AdminOrderSetStatus(deps.OrdersService, logg))
			r.Post("/{orderId}/confirm-payment", controllers.AdminOrderConfirmPayment(deps.OrdersService, logg))
		})
	})

	return r
}
