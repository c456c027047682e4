package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_notifications_total",
			Help: "Payment notifications received, by HTTP outcome",
		},
		[]string{"outcome"},
	)

	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_reconcile_total",
			Help: "Reconciliation attempts, by result",
		},
		[]string{"result"},
	)

	InvoicesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_invoices_created_total",
			Help: "Invoice creation attempts, by result",
		},
		[]string{"result"},
	)

	PrefixFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_invoice_prefix_fallback_total",
			Help: "Invoice prefix lookups that fell back to the default prefix",
		},
		[]string{"reason"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donation_gateway_request_duration_seconds",
			Help:    "Duration of calls to the payment gateway",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 15},
		},
		[]string{"operation", "status"},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "donation_event_publish_errors_total",
			Help: "Status-change events that could not be published",
		},
	)
)
