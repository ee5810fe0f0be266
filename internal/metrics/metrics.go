// Package metrics exposes prometheus counters for the watchers and the
// dispatcher.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the otpwatch collectors.
type Metrics struct {
	// Events counts change notifications per source (poll hits, mail files).
	Events *prometheus.CounterVec
	// FetchErrors counts transient read failures per source.
	FetchErrors *prometheus.CounterVec
	// Triggered counts messages that matched a keyword, per source.
	Triggered *prometheus.CounterVec
	// Dispatches counts dispatched codes per source and mode.
	Dispatches *prometheus.CounterVec
	// Suppressed counts duplicate codes dropped by the dispatcher.
	Suppressed prometheus.Counter
	// KeystrokeFailures counts failed paste or submit simulations.
	KeystrokeFailures prometheus.Counter
	// MailSkipped counts mail files dropped before extraction, per reason.
	MailSkipped *prometheus.CounterVec
}

// New returns the process-wide metrics, registering them on first use.
//
// Metrics:
//   - otpwatch_events_total{source}
//   - otpwatch_fetch_errors_total{source}
//   - otpwatch_triggered_total{source}
//   - otpwatch_dispatches_total{source,mode}
//   - otpwatch_suppressed_total
//   - otpwatch_keystroke_failures_total
//   - otpwatch_mail_skipped_total{reason}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			Events: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "otpwatch_events_total",
				Help: "Change notifications observed per source",
			}, []string{"source"}),
			FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "otpwatch_fetch_errors_total",
				Help: "Transient read failures per source",
			}, []string{"source"}),
			Triggered: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "otpwatch_triggered_total",
				Help: "Messages that matched a trigger keyword",
			}, []string{"source"}),
			Dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "otpwatch_dispatches_total",
				Help: "Codes handed to the action sink",
			}, []string{"source", "mode"}),
			Suppressed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "otpwatch_suppressed_total",
				Help: "Duplicate codes dropped inside the dedupe window",
			}),
			KeystrokeFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "otpwatch_keystroke_failures_total",
				Help: "Failed paste or submit keystroke simulations",
			}),
			MailSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "otpwatch_mail_skipped_total",
				Help: "Mail files dropped before extraction",
			}, []string{"reason"}),
		}
	})
	return globalMetrics
}
