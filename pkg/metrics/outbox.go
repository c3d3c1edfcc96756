package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics records relay outcomes for the outbox publisher.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	deadEnded *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox relay metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events relayed to Pub/Sub, by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures",
		Help: "Retryable publish failures, by event type.",
	}, []string{"event_type"})
	deadEnded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dead_lettered",
		Help: "Outbox events moved to the dead-letter table, by reason.",
	}, []string{"reason"})
	reg.MustRegister(published, failed, deadEnded)
	return &OutboxMetrics{
		published: published,
		failed:    failed,
		deadEnded: deadEnded,
	}
}

// IncPublished increments the published counter for the event type.
func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the retryable-failure counter for the event type.
func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered increments the dead-letter counter for the named reason.
func (o *OutboxMetrics) IncDeadLettered(reason string) {
	if o == nil || o.deadEnded == nil {
		return
	}
	o.deadEnded.WithLabelValues(normalizeLabel(reason)).Inc()
}
