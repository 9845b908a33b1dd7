// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the gateway's operational metrics.
type Collector struct {
	signIns          *prometheus.CounterVec
	signOuts         prometheus.Counter
	profileFetches   *prometheus.CounterVec
	profileLatency   prometheus.Histogram
	supersededFetch  prometheus.Counter
	guardDecisions   *prometheus.CounterVec
	reportsSubmitted prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "potholed_sign_ins_total",
			Help: "Successful sign-ins by method (password, google, signup, resume).",
		}, []string{"method"}),
		signOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "potholed_sign_outs_total",
			Help: "Completed sign-outs.",
		}),
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "potholed_profile_fetches_total",
			Help: "Profile fetch resolutions by outcome (success, absent, failure).",
		}, []string{"outcome"}),
		profileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "potholed_profile_fetch_seconds",
			Help:    "Profile fetch latency in seconds, including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		supersededFetch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "potholed_superseded_fetches_total",
			Help: "Profile fetch results discarded because a newer identity event arrived.",
		}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "potholed_guard_decisions_total",
			Help: "Route guard verdicts by decision (defer, redirect, allow).",
		}, []string{"decision"}),
		reportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "potholed_reports_submitted_total",
			Help: "Pothole reports accepted by the gateway.",
		}),
	}

	reg.MustRegister(
		c.signIns,
		c.signOuts,
		c.profileFetches,
		c.profileLatency,
		c.supersededFetch,
		c.guardDecisions,
		c.reportsSubmitted,
	)

	return c
}

// RecordSignIn records a successful sign-in.
func (c *Collector) RecordSignIn(method string) {
	c.signIns.WithLabelValues(method).Inc()
}

// RecordSignOut records a completed sign-out.
func (c *Collector) RecordSignOut() {
	c.signOuts.Inc()
}

// RecordProfileFetch records a profile fetch resolution.
func (c *Collector) RecordProfileFetch(outcome string, duration time.Duration) {
	c.profileFetches.WithLabelValues(outcome).Inc()
	c.profileLatency.Observe(duration.Seconds())
}

// RecordSupersededFetch records a discarded stale profile fetch.
func (c *Collector) RecordSupersededFetch() {
	c.supersededFetch.Inc()
}

// RecordGuardDecision records a route guard verdict.
func (c *Collector) RecordGuardDecision(decision string) {
	c.guardDecisions.WithLabelValues(decision).Inc()
}

// RecordReportSubmitted records an accepted pothole report.
func (c *Collector) RecordReportSubmitted() {
	c.reportsSubmitted.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
