// Package metrics holds the Prometheus collectors for distribution and claim
// activity. They register on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "profitshare"

var DistributionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "distribution",
	Name:      "distributions_created_total",
	Help:      "Total distributions that reached the distributed status.",
})

var DistributionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "distribution",
	Name:      "distribution_rejections_total",
	Help:      "Total distribution creation attempts rejected, by reason.",
}, []string{"reason"})

var ClaimsWritten = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "distribution",
	Name:      "claims_written_total",
	Help:      "Total claim records written by distribution fan-out.",
})

var ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "claim",
	Name:      "claim_transitions_total",
	Help:      "Total claim status transitions.",
}, []string{"from", "to"})

var PaymentInitiationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "claim",
	Name:      "payment_initiation_failures_total",
	Help:      "Total payment initiations that failed and were rolled back.",
})

var SettlementNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "claim",
	Name:      "settlement_notifications_total",
	Help:      "Total payment notifications handled, by outcome.",
}, []string{"outcome"})

var ReconciliationDiscrepancies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "reconciliation",
	Name:      "reconciliation_discrepancies_total",
	Help:      "Total reconciliation runs that found a discrepancy.",
})

var DependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "dependency",
	Name:      "call_duration_seconds",
	Help:      "Latency of ledger and payment gateway calls.",
	Buckets:   prometheus.DefBuckets,
}, []string{"dependency", "result"})
