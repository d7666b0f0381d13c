package thirdplace

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	batches         prometheus.Counter
	events          *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
	malformedFeeds  prometheus.Counter
	watermark       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thirdplace",
			Name:      "batches_processed_total",
			Help:      "Broadcast queue batches processed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thirdplace",
			Name:      "events_decoded_total",
			Help:      "Raw event records decoded, by event type.",
		}, []string{"type"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thirdplace",
			Name:      "handler_failures_total",
			Help:      "Handler calls that returned an error, panicked or timed out.",
		}, []string{"type"}),
		malformedFeeds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thirdplace",
			Name:      "malformed_feeds_total",
			Help:      "Polls aborted because the broadcast queue could not be read.",
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thirdplace",
			Name:      "watermark",
			Help:      "Time of the last processed batch.",
		}),
	}
	for _, c := range []prometheus.Collector{m.batches, m.events, m.handlerFailures, m.malformedFeeds, m.watermark} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) batch(watermark int64) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.watermark.Set(float64(watermark))
}

func (m *Metrics) decoded(t EventType) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) handlerFailed(t EventType) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) malformed() {
	if m == nil {
		return
	}
	m.malformedFeeds.Inc()
}
