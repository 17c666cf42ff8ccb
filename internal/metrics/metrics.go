// Package metrics registers Prometheus counters for the engine's decision
// operations, exposed via /metrics on the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ListingsCreated counts surplus listings posted by providers.
	ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_listings_created_total",
		Help: "Surplus food listings created.",
	})

	// ListingsExpired counts listings that lapsed unclaimed.
	ListingsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_listings_expired_total",
		Help: "Listings that expired before acceptance.",
	})

	// PickupsAccepted counts successful acceptances.
	PickupsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_pickups_accepted_total",
		Help: "Pickups created by successful acceptances.",
	})

	// AcceptConflicts counts lost accept races and capacity rejections.
	AcceptConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbridge_accept_conflicts_total",
		Help: "Accept attempts rejected by races or capacity.",
	}, []string{"reason"})

	// Declines counts decline events by reason.
	Declines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbridge_declines_total",
		Help: "Listings declined by organizations.",
	}, []string{"reason"})

	// ReceiptsIssued counts digital receipts generated.
	ReceiptsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_receipts_issued_total",
		Help: "Digital receipts issued for verified pickups.",
	})

	// ForecastRuns counts forecast executions by mode.
	ForecastRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbridge_forecast_runs_total",
		Help: "Forecast engine runs.",
	}, []string{"mode"})

	// ProofUploads counts proof blob handoffs.
	ProofUploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_proof_uploads_total",
		Help: "Pickup proof blobs uploaded.",
	})
)
