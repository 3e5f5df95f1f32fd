// Package metrics métricas Prometheus de negocio y HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/msp-api/internal/application/ports"
)

var _ ports.BillingMetrics = (*BillingMetrics)(nil)

// BillingMetrics contadores de facturación, renovaciones y tareas.
type BillingMetrics struct {
	InvoicesGenerated   *prometheus.CounterVec
	RenewalOutcomes     *prometheus.CounterVec
	EscalationsSent     prometheus.Counter
	NotificationsFailed *prometheus.CounterVec
	TasksFailed         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewBillingMetrics registra las métricas en reg. Con nil usa un registro propio
// (tests pueden crear varias instancias sin colisión).
func NewBillingMetrics(reg *prometheus.Registry) *BillingMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &BillingMetrics{
		InvoicesGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "invoices_generated_total",
			Help:      "Invoices generated by source (manual, ticket, asset_renewal).",
		}, []string{"source"}),
		RenewalOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "renewal_outcomes_total",
			Help:      "Asset renewal checks by outcome (created, skipped, failed).",
		}, []string{"outcome"}),
		EscalationsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "renewal_escalations_total",
			Help:      "Critical escalations sent for pending renewals.",
		}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "notifications_failed_total",
			Help:      "Failed notification deliveries by channel.",
		}, []string{"channel"}),
		TasksFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "background_tasks_failed_total",
			Help:      "Background tasks dropped after exhausting retries.",
		}, []string{"task"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msp",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "msp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

func (m *BillingMetrics) InvoiceGenerated(source string) {
	m.InvoicesGenerated.WithLabelValues(source).Inc()
}

func (m *BillingMetrics) RenewalOutcome(outcome string) {
	m.RenewalOutcomes.WithLabelValues(outcome).Inc()
}

func (m *BillingMetrics) EscalationSent() { m.EscalationsSent.Inc() }

func (m *BillingMetrics) NotificationFailed(channel string) {
	m.NotificationsFailed.WithLabelValues(channel).Inc()
}

func (m *BillingMetrics) TaskFailed(task string) {
	m.TasksFailed.WithLabelValues(task).Inc()
}

// Handler expone el registro en formato Prometheus.
func (m *BillingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
