package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects the metrics of one run. A nil Recorder discards every
// observation.
type Recorder struct {
	registry *prometheus.Registry

	recipients   prometheus.Gauge
	attempts     prometheus.Counter
	success      *prometheus.CounterVec
	failure      *prometheus.CounterVec
	sendDuration prometheus.Histogram
}

// New registers the mailer metrics on a fresh registry. host labels the
// success and failure counters with the relay in use.
func New(host string) *Recorder {
	constLabels := prometheus.Labels{"host": host}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recipients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mailer_batch_recipients",
			Help:        "Number of recipients in the current batch",
			ConstLabels: constLabels,
		}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mailer_send_attempts_total",
			Help:        "Total number of recipients a send was attempted for",
			ConstLabels: constLabels,
		}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mailer_send_success_total",
			Help:        "Total number of successful mail sends",
			ConstLabels: constLabels,
		}, nil),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mailer_send_failure_total",
			Help:        "Total number of failed recipients by failure kind",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "mailer_send_duration_seconds",
			Help:        "Time spent submitting one message to the relay",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}

	r.registry.MustRegister(r.recipients, r.attempts, r.success, r.failure, r.sendDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SetRecipients records the batch size.
func (r *Recorder) SetRecipients(n int) {
	if r == nil {
		return
	}
	r.recipients.Set(float64(n))
}

// ObserveAttempt counts one send attempt and its duration.
func (r *Recorder) ObserveAttempt(d time.Duration) {
	if r == nil {
		return
	}
	r.attempts.Inc()
	r.sendDuration.Observe(d.Seconds())
}

// IncSuccess counts one delivered message.
func (r *Recorder) IncSuccess() {
	if r == nil {
		return
	}
	r.success.WithLabelValues().Inc()
}

// IncFailure counts one failed recipient under kind.
func (r *Recorder) IncFailure(kind string) {
	if r == nil {
		return
	}
	r.failure.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
