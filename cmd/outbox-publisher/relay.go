package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/metrics"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPollMs      = 500
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterSpread        = 250 * time.Millisecond
)

var jitter = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// eventStore is the slice of the outbox repository the relay drives.
type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type topicResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher narrows the GCP publisher so tests can stand in for it.
type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishReceipt
}

type publishReceipt interface {
	Get(context.Context) (string, error)
}

type publisherFor func(topic string) topicPublisher

// RelayParams bundles what the order-event relay needs.
type RelayParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       eventStore
	Registry         topicResolver
	DLQRepository    deadLetterStore
	PublisherFactory publisherFor
	Metrics          *metrics.OutboxMetrics
}

// Relay drains pending outbox rows and hands them to Pub/Sub. Rows that can
// never publish (unroutable type, exhausted attempts) move to the DLQ table.
type Relay struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	store        eventStore
	pubsub       pubSubClient
	resolver     topicResolver
	dlq          deadLetterStore
	publisherFor publisherFor
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) topicPublisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	relay := &Relay{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		store:        params.Repository,
		pubsub:       params.PubSub,
		resolver:     params.Registry,
		dlq:          params.DLQRepository,
		publisherFor: factory,
		metrics:      params.Metrics,
		batchSize:    params.Config.Outbox.BatchSize,
		maxAttempts:  params.Config.Outbox.MaxAttempts,
		pollInterval: time.Duration(params.Config.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if relay.batchSize <= 0 {
		relay.batchSize = fallbackBatchSize
	}
	if relay.maxAttempts <= 0 {
		relay.maxAttempts = fallbackMaxAttempts
	}
	if relay.pollInterval <= 0 {
		relay.pollInterval = fallbackPollMs * time.Millisecond
	}
	return relay, nil
}

// Run polls until the context ends. An idle poll sleeps one interval; a
// failing poll backs off exponentially up to the ceiling.
func (r *Relay) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	delay := r.pollInterval
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "relay context canceled")
			return ctx.Err()
		default:
		}

		drained, err := r.drainOnce(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "relay batch error", err)
			delay = doubleCapped(delay, backoffCeiling)
		case drained:
			delay = r.pollInterval
			continue
		default:
			delay = r.pollInterval
		}

		if err := sleepCtx(ctx, delay+randomJitter()); err != nil {
			return err
		}
	}
}

func (r *Relay) checkDependencies(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.db.Ping,
		"pubsub":   r.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// drainOnce claims one batch inside a transaction and settles every row in
// it. The claim query row-locks with SKIP LOCKED, so concurrent relays never
// double-publish from the same batch.
func (r *Relay) drainOnce(ctx context.Context) (bool, error) {
	sawWork := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		sawWork = true

		for _, row := range batch {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return sawWork, err
}

// settle decides one row's fate: published, retried later, or dead-lettered.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, "", nil)
	}

	fields := r.rowFields(row, resolved.Envelope, resolved.Descriptor.Topic)
	pubErr := r.publish(ctx, row, resolved)
	if pubErr == nil {
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Info(r.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(pubErr, &permanent) {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr, resolved.Descriptor.Topic, fields)
	}

	attempts := row.AttemptCount + 1
	fields["attempt_count"] = attempts
	if attempts >= r.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		exhausted := fmt.Errorf("max publish attempts reached: %w", pubErr)
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, exhausted, resolved.Descriptor.Topic, fields)
	}

	warnCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", pubErr.Error())
	r.logg.Warn(warnCtx, "outbox publish failed, will retry")
	r.metrics.IncFailed(string(row.EventType))
	if err := r.store.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, topic string, fields map[string]any) error {
	if fields == nil {
		fields = r.rowFields(row, outbox.PayloadEnvelope{}, topic)
	}
	fields["error_reason"] = reason
	warnCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", cause.Error())
	r.logg.Warn(warnCtx, "outbox event moved to dead letter")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	r.metrics.IncDeadLettered(string(reason))
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	receipt := pub.Publish(pubCtx, msg)
	if receipt == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := receipt.Get(pubCtx)
	return err
}

func (r *Relay) rowFields(row models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func doubleCapped(d, ceiling time.Duration) time.Duration {
	if d <= 0 {
		return ceiling
	}
	if d *= 2; d > ceiling {
		return ceiling
	}
	return d
}

func randomJitter() time.Duration {
	return time.Duration(jitter.Int63n(int64(jitterSpread)))
}

func wrapPublisher(p *gcppubsub.Publisher) topicPublisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{inner: p}
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishReceipt {
	if p.inner == nil {
		return nil
	}
	return gcpReceipt{inner: p.inner.Publish(ctx, msg)}
}

type gcpReceipt struct {
	inner *gcppubsub.PublishResult
}

func (r gcpReceipt) Get(ctx context.Context) (string, error) {
	if r.inner == nil {
		return "", errors.New("publish result is nil")
	}
	return r.inner.Get(ctx)
}
