package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/logger"
)

type recordingNotificationPruner struct {
	cutoff time.Time
	calls  int
	err    error
}

func (r *recordingNotificationPruner) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	r.calls++
	r.cutoff = cutoff
	return 42, r.err
}

func buildCleanupJob(t *testing.T, pruner *recordingNotificationPruner, retention int) *notificationCleanupJob {
	t.Helper()
	built, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         passthroughTxRunner{},
		Repository: pruner,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	return built.(*notificationCleanupJob)
}

func TestNotificationCleanupUsesConfiguredRetention(t *testing.T) {
	frozen := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	pruner := &recordingNotificationPruner{}
	job := buildCleanupJob(t, pruner, 14)
	job.now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := frozen.AddDate(0, 0, -14); !pruner.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", pruner.cutoff, want)
	}
	if pruner.calls != 1 {
		t.Fatalf("pruner called %d times, want 1", pruner.calls)
	}
}

func TestNotificationCleanupSurfacesPruneErrors(t *testing.T) {
	pruner := &recordingNotificationPruner{err: errors.New("relation locked")}
	job := buildCleanupJob(t, pruner, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the prune error to propagate")
	}
}
