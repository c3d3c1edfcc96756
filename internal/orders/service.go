package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/payloads"
	"github.com/tastebudhq/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order lifecycle operations after checkout has created
// the row. Status and payment status move independently.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error)
	AdminList(ctx context.Context, params pagination.Params, filters AdminListFilters) (*AdminOrderList, error)
	AdminConfirmPayment(ctx context.Context, adminID, orderID uuid.UUID) (*models.Order, error)
	AdminSetStatus(ctx context.Context, adminID, orderID uuid.UUID, input AdminStatusUpdate) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, sink outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sink == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: sink}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// MarkPaid is the customer's claim of settlement for cash and bank
// transfer orders. It never sets PAID; an admin confirms afterwards.
func (s *service) MarkPaid(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByIDForUser(ctx, orderID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if found.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be marked paid in current payment state").
				WithDetails(map[string]any{"payment_status": found.PaymentStatus})
		}

		if err := repo.UpdateFields(ctx, found.ID, map[string]any{
			"payment_status": enums.PaymentStatusAwaitingVerification,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		found.PaymentStatus = enums.PaymentStatusAwaitingVerification
		order = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	updated, err := s.repo.MarkUserDeleted(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear order history")
	}
	return updated, nil
}

func (s *service) AdminList(ctx context.Context, params pagination.Params, filters AdminListFilters) (*AdminOrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	list, err := s.repo.AdminList(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// AdminConfirmPayment settles the order unconditionally. Confirming an
// already paid order is a no-op update, not a conflict.
func (s *service) AdminConfirmPayment(ctx context.Context, adminID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := repo.UpdateFields(ctx, found.ID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"status":         enums.OrderStatusConfirmed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}

		found.PaymentStatus = enums.PaymentStatusPaid
		found.Status = enums.OrderStatusConfirmed
		order = found

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         adminActor(adminID),
			Data: payloads.OrderPaymentConfirmedEvent{
				OrderID:       found.ID,
				UserID:        found.UserID,
				PaymentMethod: found.PaymentMethod,
				TotalAmount:   found.TotalAmount,
				ConfirmedAt:   time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) AdminSetStatus(ctx context.Context, adminID, orderID uuid.UUID, input AdminStatusUpdate) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if found.Status == input.Status {
			order = found
			return nil
		}

		previous := found.Status
		updates := map[string]any{"status": input.Status}
		var reason *string
		if input.Status == enums.OrderStatusCancelled {
			reason = normalizeReason(input.CancellationReason)
			updates["cancellation_reason"] = reason
		}

		if err := repo.UpdateFields(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		found.Status = input.Status
		if input.Status == enums.OrderStatusCancelled {
			found.CancellationReason = reason
		}
		order = found

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         adminActor(adminID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:            found.ID,
				UserID:             found.UserID,
				PreviousStatus:     previous,
				Status:             found.Status,
				CancellationReason: found.CancellationReason,
				ChangedAt:          time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func adminActor(adminID uuid.UUID) *outbox.ActorRef {
	if adminID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)}
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
