package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/internal/cart"
	"github.com/tastebudhq/storefront-backend/internal/stock"
	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
	"github.com/tastebudhq/storefront-backend/pkg/metrics"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockDecrementer interface {
	DecrementForOrder(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
}

type paymentVerifier interface {
	Verify(ctx context.Context, reference string) bool
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service converts a cart into a persisted order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceOrderResult, error)
}

type service struct {
	repo     Repository
	cartRepo cart.Repository
	tx       txRunner
	ledger   stockDecrementer
	verifier paymentVerifier
	outbox   outboxPublisher
	users    userLoader
	delivery config.DeliveryConfig
	metrics  *metrics.CheckoutMetrics
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Repository Repository
	CartRepo   cart.Repository
	Tx         txRunner
	Ledger     stockDecrementer
	Verifier   paymentVerifier
	Outbox     outboxPublisher
	Users      userLoader
	Delivery   config.DeliveryConfig
	Metrics    *metrics.CheckoutMetrics
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:     params.Repository,
		cartRepo: params.CartRepo,
		tx:       params.Tx,
		ledger:   params.Ledger,
		verifier: params.Verifier,
		outbox:   params.Outbox,
		users:    params.Users,
		delivery: params.Delivery,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceOrderResult, error) {
	started := time.Now()
	result, err := s.placeOrder(ctx, userID, input)
	s.record(input.PaymentMethod, started, err)
	return result, err
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.DeliveryAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery address")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	userCart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	totals := cart.TotalsForItems(userCart.Items)
	fee := DeliveryFee(totals.Subtotal, input.DeliveryAddress.State, s.delivery)
	total := totals.Subtotal.Add(fee)

	// gateway verification happens before the transaction opens; a
	// declined card never touches stock or the cart
	paymentStatus := enums.PaymentStatusPending
	if input.PaymentMethod.RequiresVerification() {
		reference := ""
		if input.PaymentReference != nil {
			reference = strings.TrimSpace(*input.PaymentReference)
		}
		if reference == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required for card payments")
		}
		if !s.verifier.Verify(ctx, reference) {
			return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, "payment could not be verified")
		}
		paymentStatus = enums.PaymentStatusPaid
	}

	order := &models.Order{
		ID:               uuid.New(),
		UserID:           userID,
		Subtotal:         totals.Subtotal,
		DeliveryFee:      fee,
		TotalAmount:      total,
		Status:           enums.OrderStatusPending,
		PaymentMethod:    input.PaymentMethod,
		PaymentStatus:    paymentStatus,
		PaymentReference: input.PaymentReference,
		DeliveryAddress:  input.DeliveryAddress,
		Notes:            input.Notes,
	}

	items := make([]models.OrderItem, 0, len(userCart.Items))
	lines := make([]stock.Line, 0, len(userCart.Items))
	eventLines := make([]payloads.OrderLine, 0, len(userCart.Items))
	snapshotIDs := make([]uuid.UUID, 0, len(userCart.Items))
	for _, cartItem := range userCart.Items {
		snapshot := orderItemFromCartLine(order.ID, cartItem)
		items = append(items, snapshot)
		snapshotIDs = append(snapshotIDs, cartItem.ID)
		lines = append(lines, stock.Line{
			ProductID:   cartItem.ProductID,
			ProductName: snapshot.ProductName,
			Quantity:    cartItem.Quantity,
		})
		eventLines = append(eventLines, payloads.OrderLine{
			ProductID:   cartItem.ProductID,
			ProductName: snapshot.ProductName,
			Price:       cartItem.PriceAtAddition,
			Quantity:    cartItem.Quantity,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := s.ledger.DecrementForOrder(ctx, tx, lines); err != nil {
			return err
		}
		// only the lines snapshotted into the order are removed; a line
		// added concurrently since the cart was read stays in the cart
		if err := cartRepo.DeleteItemsByID(ctx, userCart.ID, snapshotIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear ordered cart lines")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(user.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        userID,
				CustomerName:  user.FullName,
				CustomerEmail: user.Email,
				Items:         eventLines,
				Subtotal:      order.Subtotal,
				DeliveryFee:   order.DeliveryFee,
				TotalAmount:   order.TotalAmount,
				PaymentMethod: order.PaymentMethod,
				PaymentStatus: order.PaymentStatus,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return &PlaceOrderResult{
		OrderID:       order.ID,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		TotalAmount:   order.TotalAmount,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}, nil
}

func (s *service) record(method enums.PaymentMethod, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(string(method), time.Since(started))
	if err == nil {
		s.metrics.IncPlaced(string(method))
		return
	}
	reason := "internal"
	if domainErr := pkgerrors.As(err); domainErr != nil {
		reason = strings.ToLower(string(domainErr.Code()))
	}
	s.metrics.IncFailed(reason)
}

func orderItemFromCartLine(orderID uuid.UUID, item models.CartItem) models.OrderItem {
	snapshot := models.OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: item.ProductID,
		Price:     item.PriceAtAddition,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		snapshot.ProductName = item.Product.Name
		snapshot.ProductImage = item.Product.ImageURL
	}
	return snapshot
}
