// Package metrics instruments the bus engine with Prometheus collectors.
// Every method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GC run outcomes.
const (
	GCCompleted = "completed"
	GCSkipped   = "skipped"
	GCFailed    = "failed"
)

// Notification kinds.
const (
	NotifyMessage = "message"
	NotifyClose   = "close"
)

// Metrics holds the engine collectors.
type Metrics struct {
	clientsCreated    prometheus.Counter
	clientsDestroyed  prometheus.Counter
	subscriptions     *prometheus.CounterVec
	messagesQueued    prometheus.Counter
	messagesDelivered prometheus.Counter
	notifications     *prometheus.CounterVec
	gcRuns            *prometheus.CounterVec
	gcEvicted         prometheus.Counter
	gcDuration        prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	const ns = "busengine"

	m := &Metrics{
		clientsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "clients_created_total",
			Help:      "Clients registered by this instance.",
		}),
		clientsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "clients_destroyed_total",
			Help:      "Clients removed from the presence registry by this instance.",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "subscription_changes_total",
			Help:      "Subscriptions created or removed, by operation.",
		}, []string{"op"}),
		messagesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "messages_queued_total",
			Help:      "Messages appended to client queues.",
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "messages_delivered_total",
			Help:      "Messages drained and handed to local connections.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "notifications_sent_total",
			Help:      "Notifications broadcast, by kind.",
		}, []string{"kind"}),
		gcRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "gc_runs_total",
			Help:      "Garbage collection ticks, by result.",
		}, []string{"result"}),
		gcEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "gc_evicted_clients_total",
			Help:      "Stale clients destroyed by garbage collection.",
		}),
		gcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "gc_duration_seconds",
			Help:      "Duration of garbage collection passes that held the lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.clientsCreated,
			m.clientsDestroyed,
			m.subscriptions,
			m.messagesQueued,
			m.messagesDelivered,
			m.notifications,
			m.gcRuns,
			m.gcEvicted,
			m.gcDuration,
		)
	}
	return m
}

// ClientCreated counts a client registered by a handshake.
func (m *Metrics) ClientCreated() {
	if m != nil {
		m.clientsCreated.Inc()
	}
}

// ClientDestroyed counts a client whose presence entry was removed.
func (m *Metrics) ClientDestroyed() {
	if m != nil {
		m.clientsDestroyed.Inc()
	}
}

// Subscribed counts a subscription that was newly added.
func (m *Metrics) Subscribed() {
	if m != nil {
		m.subscriptions.WithLabelValues("subscribe").Inc()
	}
}

// Unsubscribed counts a subscription that was actually removed.
func (m *Metrics) Unsubscribed() {
	if m != nil {
		m.subscriptions.WithLabelValues("unsubscribe").Inc()
	}
}

// MessageQueued counts one message appended to a client queue.
func (m *Metrics) MessageQueued() {
	if m != nil {
		m.messagesQueued.Inc()
	}
}

// MessagesDelivered adds n drained messages. Non-positive n is ignored.
func (m *Metrics) MessagesDelivered(n int) {
	if m != nil && n > 0 {
		m.messagesDelivered.Add(float64(n))
	}
}

// NotificationSent counts a broadcast of the given kind (NotifyMessage or NotifyClose).
func (m *Metrics) NotificationSent(kind string) {
	if m != nil {
		m.notifications.WithLabelValues(kind).Inc()
	}
}

// GCRun records one collector tick.
func (m *Metrics) GCRun(result string, evicted int, d time.Duration) {
	if m == nil {
		return
	}
	m.gcRuns.WithLabelValues(result).Inc()
	if evicted > 0 {
		m.gcEvicted.Add(float64(evicted))
	}
	if result != GCSkipped {
		m.gcDuration.Observe(d.Seconds())
	}
}
