package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/tastebudhq/storefront-backend/pkg/logger"
)

type stubLock struct {
	held     bool
	acquires int
	releases int
	denied   bool
}

func (s *stubLock) Acquire(context.Context) (bool, error) {
	s.acquires++
	if s.denied || s.held {
		return false, nil
	}
	s.held = true
	return true, nil
}

func (s *stubLock) Release(context.Context) error {
	s.held = false
	s.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func newTestScheduler(t *testing.T, lock Lock, jobs ...Job) *Scheduler {
	t.Helper()
	scheduler, err := NewScheduler(SchedulerParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return scheduler
}

func TestSweepRunsEveryJobPastFailures(t *testing.T) {
	sweeper := &countingJob{name: "order-ttl"}
	broken := &countingJob{name: "outbox-retention", err: errors.New("table locked")}
	trailing := &countingJob{name: "notification-cleanup"}
	lock := &stubLock{}
	scheduler := newTestScheduler(t, lock, sweeper, broken, trailing)

	if err := scheduler.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	for _, job := range []*countingJob{sweeper, broken, trailing} {
		if job.runs != 1 {
			t.Fatalf("job %s ran %d times, want 1", job.name, job.runs)
		}
	}
	if lock.releases != 1 {
		t.Fatalf("lock released %d times, want 1", lock.releases)
	}
}

func TestSweepSkipsWhenLockDenied(t *testing.T) {
	job := &countingJob{name: "order-ttl"}
	lock := &stubLock{denied: true}
	scheduler := newTestScheduler(t, lock, job)

	if err := scheduler.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times while lock denied, want 0", job.runs)
	}
	if lock.releases != 0 {
		t.Fatal("a denied lock must not be released")
	}
}

func TestNewSchedulerRequiresLockAndLogger(t *testing.T) {
	if _, err := NewScheduler(SchedulerParams{Lock: &stubLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewScheduler(SchedulerParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})}); err == nil {
		t.Fatal("expected error without lock")
	}
}
