package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airdrop_api_build_info",
			Help: "Build information of the airdrop API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airdrop_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Distribution metrics
	ProofsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airdrop_api_proofs_submitted_total",
			Help: "Total number of social proof submissions",
		},
	)

	ProofsVerifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airdrop_api_proofs_verified_total",
			Help: "Total number of operator proof verifications",
		},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_api_claims_total",
			Help: "Total number of claim attempts",
		},
		[]string{"phase", "status"}, // status: "success", "rejected", "transfer_failed"
	)

	ClaimAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_api_claim_amount_total",
			Help: "Total token amount paid out by phase",
		},
		[]string{"phase"},
	)

	Phase1ParticipantsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_api_phase1_participants",
			Help: "Number of wallets that have claimed in phase 1",
		},
	)

	Phase1RemainingSlotsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_api_phase1_remaining_slots",
			Help: "Remaining phase 1 participation slots",
		},
	)

	PoolBalanceGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_api_pool_balance",
			Help: "Current token balance of the distribution pool",
		},
	)

	PausedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_api_paused",
			Help: "Whether the distributor is paused (1 = paused)",
		},
	)

	// Ledger metrics
	LedgerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_api_ledger_requests_total",
			Help: "Total number of token ledger requests",
		},
		[]string{"op", "status"},
	)

	LedgerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airdrop_api_ledger_request_duration_seconds",
			Help:    "Duration of token ledger requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
		[]string{"op"},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// RecordClaim records the outcome of a claim attempt.
func RecordClaim(phase string, amount uint64, err error) {
	status := "success"
	if err != nil {
		status = "rejected"
	}
	ClaimsTotal.WithLabelValues(phase, status).Inc()
	if err == nil && amount > 0 {
		ClaimAmountTotal.WithLabelValues(phase).Add(float64(amount))
	}
}

// RecordLedgerRequest records metrics for a token ledger request.
func RecordLedgerRequest(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LedgerRequestsTotal.WithLabelValues(op, status).Inc()
	LedgerRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// UpdateDistributionGauges refreshes the phase 1 and pool gauges from stats.
func UpdateDistributionGauges(participants, remaining, poolBalance uint64, paused bool) {
	Phase1ParticipantsGauge.Set(float64(participants))
	Phase1RemainingSlotsGauge.Set(float64(remaining))
	PoolBalanceGauge.Set(float64(poolBalance))
	if paused {
		PausedGauge.Set(1)
	} else {
		PausedGauge.Set(0)
	}
}
