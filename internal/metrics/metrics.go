// Package metrics exposes the prometheus collectors for the analysis
// pipeline. A nil *Recorder is valid and records nothing, so callers
// never need to guard their instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ashare"

// Recorder bundles the pipeline's collectors.
type Recorder struct {
	analyses      *prometheus.CounterVec
	duration      prometheus.Histogram
	providerReqs  *prometheus.CounterVec
	llmReqs       *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the collectors with reg and returns the recorder. Pass
// prometheus.DefaultRegisterer in production so the web server's
// /metrics endpoint picks them up.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed per-stock analyses by status.",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one stock analysis.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		providerReqs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Upstream data provider requests by provider and status.",
		}, []string{"provider", "status"}),
		llmReqs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM narrative requests by status.",
		}, []string{"status"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and status.",
		}, []string{"channel", "status"}),
	}
}

// RecordAnalysis counts one finished stock analysis.
func (r *Recorder) RecordAnalysis(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(status).Inc()
	r.duration.Observe(d.Seconds())
}

// RecordProviderRequest counts one upstream provider call.
func (r *Recorder) RecordProviderRequest(provider, status string) {
	if r == nil {
		return
	}
	r.providerReqs.WithLabelValues(provider, status).Inc()
}

// RecordLLMRequest counts one narrative attempt.
func (r *Recorder) RecordLLMRequest(status string) {
	if r == nil {
		return
	}
	r.llmReqs.WithLabelValues(status).Inc()
}

// RecordNotification counts one channel delivery.
func (r *Recorder) RecordNotification(channel, status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(channel, status).Inc()
}

// Status converts an error into the ok/error label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
