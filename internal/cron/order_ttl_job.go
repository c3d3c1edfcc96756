package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/internal/orders"
	"github.com/tastebudhq/storefront-backend/internal/stock"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/payloads"
)

const (
	staleOrderCutoffHours = 48
	expiredOrderReason    = "payment not received in time"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockRestorer interface {
	RestoreForOrder(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
}

type staleOrderReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

type transactionalOrderRepo interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

type transactionalRepoFactory func(tx *gorm.DB) transactionalOrderRepo

func defaultTransactionalRepo(tx *gorm.DB) transactionalOrderRepo {
	return orders.NewRepository(tx)
}

// OrderTTLJobParams configure the stale order expiry job.
type OrderTTLJobParams struct {
	Logger                   *logger.Logger
	DB                       txRunner
	PendingReader            staleOrderReader
	Ledger                   stockRestorer
	Outbox                   outboxEmitter
	CutoffHours              int
	TransactionalRepoFactory transactionalRepoFactory
}

// NewOrderTTLJob builds the cron job that cancels orders whose payment never arrived.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	cutoff := params.CutoffHours
	if cutoff <= 0 {
		cutoff = staleOrderCutoffHours
	}
	factory := params.TransactionalRepoFactory
	if factory == nil {
		factory = defaultTransactionalRepo
	}
	return &orderTTLJob{
		logg:        params.Logger,
		db:          params.DB,
		pending:     params.PendingReader,
		ledger:      params.Ledger,
		outbox:      params.Outbox,
		cutoffHours: cutoff,
		repoFactory: factory,
		now:         time.Now,
	}, nil
}

type orderTTLJob struct {
	logg        *logger.Logger
	db          txRunner
	pending     staleOrderReader
	ledger      stockRestorer
	outbox      outboxEmitter
	cutoffHours int
	repoFactory transactionalRepoFactory
	now         func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.cutoffHours) * time.Hour)
	ids, err := j.pending.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale orders: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var errs error
	expired := 0
	for _, id := range ids {
		if err := j.expireOrder(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"candidates":   len(ids),
		"expired":      expired,
		"cutoff_hours": j.cutoffHours,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return errs
}

// expireOrder re-reads the order under its own transaction; another writer
// may have confirmed payment between the sweep query and this point.
func (j *orderTTLJob) expireOrder(ctx context.Context, orderID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending || order.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}

		reason := expiredOrderReason
		if err := repo.UpdateFields(ctx, orderID, map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancellation_reason": reason,
		}); err != nil {
			return err
		}

		lines := make([]stock.Line, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, stock.Line{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
			})
		}
		if err := j.ledger.RestoreForOrder(ctx, tx, lines); err != nil {
			return err
		}

		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:            order.ID,
				UserID:             order.UserID,
				PreviousStatus:     enums.OrderStatusPending,
				Status:             enums.OrderStatusCancelled,
				CancellationReason: &reason,
				ChangedAt:          j.now().UTC(),
			},
			OccurredAt: j.now().UTC(),
		})
	})
}
