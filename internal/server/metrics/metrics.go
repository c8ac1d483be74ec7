// Package metrics declares the Prometheus collectors of the theme server.
// They register with the default registry and are exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_theme"

// Cache event labels.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// Validation outcome labels.
const (
	Valid   = "valid"
	Invalid = "invalid"
)

var (
	// CacheEvents counts ServerCache lookups.
	// Labels: result (hit, miss, expired)
	CacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "events_total",
		Help:      "Server cache lookups by result",
	}, []string{"result"})

	// Validations counts validator runs.
	// Labels: stage (submit, validate, render), outcome (valid, invalid)
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "runs_total",
		Help:      "Validator runs by stage and outcome",
	}, []string{"stage", "outcome"})

	// Submissions counts stored theme versions.
	// Labels: source (upload, ai)
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "submissions_total",
		Help:      "Accepted theme submissions by source",
	}, []string{"source"})

	// RequestDuration measures HTTP handling time.
	// Labels: route, method, status
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// ShellRenders counts page-shell renders.
	// Labels: theme (inlined, none, timeout, rejected)
	ShellRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "shell",
		Name:      "renders_total",
		Help:      "Page shell renders by theme outcome",
	}, []string{"theme"})
)

// Outcome maps a validity flag to its label.
func Outcome(valid bool) string {
	if valid {
		return Valid
	}
	return Invalid
}
