package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/logger"
)

const defaultNotificationRetentionDays = 30

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationCleanupJobParams configure the notification pruning job.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationPruner
	Retention  int
}

// NewNotificationCleanupJob prunes notifications past the retention window,
// read or not.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	if params.Retention <= 0 {
		params.Retention = defaultNotificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		pruner:    params.Repository,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	pruner    notificationPruner
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := daysAgo(j.now, j.retention)
	var pruned int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		pruned, err = j.pruner.DeleteOlderThan(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   pruned,
	}), "notification cleanup complete")
	return nil
}
