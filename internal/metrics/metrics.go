package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	// outcome: sent | cooldown | max_retries | throttled | failed
	VerificationSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "verification_sends_total", Help: "Verification email resend attempts by outcome"},
		[]string{"outcome"},
	)
	// outcome: ok | failed
	PreferenceSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "preference_saves_total", Help: "Preference saves by outcome"},
		[]string{"outcome"},
	)
	ActivePages = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pages_active", Help: "Open page controllers"},
	)

	// outcome: ok | failed
	BoardFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "job_board_fetches_total", Help: "Job board fetches by board and outcome"},
		[]string{"board", "outcome"},
	)
	JobsNew = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "jobs_new_total", Help: "Postings stored for the first time"},
	)
	// outcome: published | failed
	Digests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "digests_total", Help: "Subscriber digests by outcome"},
		[]string{"outcome"},
	)
)

var once sync.Once

// MustRegister is safe to call more than once (tests build several routers).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, VerificationSends, PreferenceSaves, ActivePages,
			BoardFetches, JobsNew, Digests)
	})
}
