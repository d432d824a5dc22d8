// Package metrics exposes Prometheus instruments for reconciliation, checkout
// and webhook traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credits"

// Recorder owns a private registry so tests and multiple instances never
// collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	Reconciliations     *prometheus.CounterVec
	ReconcileDuration   *prometheus.HistogramVec
	CreditsGranted      *prometheus.CounterVec
	CheckoutSessions    *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	SweepEnqueued       prometheus.Counter
	RateLimitRejections prometheus.Counter
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation attempts by outcome.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling a single session.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		CreditsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granted_total",
			Help:      "Credits granted by plan.",
		}, []string{"plan"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session creation attempts by result.",
		}, []string{"result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and result.",
		}, []string{"type", "result"}),
		SweepEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_enqueued_total",
			Help:      "Stale pending sessions re-enqueued by the sweeper.",
		}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Checkout attempts rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		r.Reconciliations,
		r.ReconcileDuration,
		r.CreditsGranted,
		r.CheckoutSessions,
		r.WebhookEvents,
		r.SweepEnqueued,
		r.RateLimitRejections,
	)
	return r
}

var _ reconciler.Metrics = (*Recorder)(nil)

func (r *Recorder) ObserveReconcile(outcome reconciler.Outcome, elapsed time.Duration) {
	r.Reconciliations.WithLabelValues(string(outcome)).Inc()
	r.ReconcileDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (r *Recorder) AddCreditsGranted(plan models.PlanName, credits int64) {
	r.CreditsGranted.WithLabelValues(string(plan)).Add(float64(credits))
}

func (r *Recorder) ObserveCheckout(result string) {
	r.CheckoutSessions.WithLabelValues(result).Inc()
	if result == "rate_limited" {
		r.RateLimitRejections.Inc()
	}
}

func (r *Recorder) ObserveWebhook(eventType, result string) {
	r.WebhookEvents.WithLabelValues(eventType, result).Inc()
}

func (r *Recorder) ObserveSweep(enqueued int) {
	r.SweepEnqueued.Add(float64(enqueued))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
