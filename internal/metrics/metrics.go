// Package metrics exposes print pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for print requests.
const (
	OutcomePrinted       = "printed"
	OutcomeDenied        = "denied"
	OutcomeNotConfigured = "not_configured"
	OutcomeImageFailed   = "image_failed"
	OutcomeSubmitFailed  = "submit_failed"
)

// Recorder is what the dispatcher reports to.
type Recorder interface {
	RecordRequest(outcome string)
	RecordDenial(reason string)
	RecordCopies(copies int)
	RecordSubmitLatency(d time.Duration)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	denials       *prometheus.CounterVec
	copies        prometheus.Counter
	submitLatency prometheus.Histogram
}

// NewCollector registers the print metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telefax_print_requests_total",
			Help: "Print requests by final outcome.",
		}, []string{"outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telefax_print_denials_total",
			Help: "Denied print requests by reason.",
		}, []string{"reason"}),
		copies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telefax_copies_printed_total",
			Help: "Copies successfully handed to the print system.",
		}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "telefax_print_submit_seconds",
			Help:    "Duration of print submissions.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.requests, c.denials, c.copies, c.submitLatency)
	return c
}

func (c *Collector) RecordRequest(outcome string) {
	c.requests.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDenial(reason string) {
	c.denials.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordCopies(copies int) {
	c.copies.Add(float64(copies))
}

func (c *Collector) RecordSubmitLatency(d time.Duration) {
	c.submitLatency.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordRequest(string)              {}
func (Noop) RecordDenial(string)               {}
func (Noop) RecordCopies(int)                  {}
func (Noop) RecordSubmitLatency(time.Duration) {}
