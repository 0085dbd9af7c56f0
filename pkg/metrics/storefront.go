package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records request, gate, and checkout activity.
type Storefront struct {
	requests  *prometheus.HistogramVec
	gate      *prometheus.CounterVec
	checkouts *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
	jobRuns   *prometheus.CounterVec
	jobTimes  *prometheus.HistogramVec
}

// NewStorefront registers the storefront collectors on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	gate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_gate_decisions_total",
		Help: "Access gate decisions by protection level and outcome.",
	}, []string{"level", "outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment provider and result.",
	}, []string{"provider", "result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Payment provider callbacks by provider and result.",
	}, []string{"provider", "result"})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Scheduled job runs by job and result.",
	}, []string{"job", "result"})
	jobTimes := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Scheduled job duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(requests, gate, checkouts, webhooks, jobRuns, jobTimes)
	return &Storefront{
		requests:  requests,
		gate:      gate,
		checkouts: checkouts,
		webhooks:  webhooks,
		jobRuns:   jobRuns,
		jobTimes:  jobTimes,
	}
}

// ObserveRequest records one HTTP request.
func (s *Storefront) ObserveRequest(method, route string, status int, duration time.Duration) {
	if s == nil || s.requests == nil {
		return
	}
	s.requests.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

// IncGateDecision counts a gate decision.
func (s *Storefront) IncGateDecision(level, outcome string) {
	if s == nil || s.gate == nil {
		return
	}
	s.gate.WithLabelValues(normalizeLabel(level), normalizeLabel(outcome)).Inc()
}

// IncCheckout counts a checkout attempt.
func (s *Storefront) IncCheckout(provider, result string) {
	if s == nil || s.checkouts == nil {
		return
	}
	s.checkouts.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

// IncWebhook counts a provider callback.
func (s *Storefront) IncWebhook(provider, result string) {
	if s == nil || s.webhooks == nil {
		return
	}
	s.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

// ObserveJob records one scheduled job run.
func (s *Storefront) ObserveJob(job string, failed bool, duration time.Duration) {
	if s == nil || s.jobRuns == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	s.jobRuns.WithLabelValues(normalizeLabel(job), result).Inc()
	s.jobTimes.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
