package adax

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Requests          *prometheus.CounterVec
	Retries           *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	TokenAcquisitions *prometheus.CounterVec
	Flushes           *prometheus.CounterVec
	CoalescedEdits    prometheus.Counter
	SkippedUpdates    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of Adax API requests by endpoint and outcome",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "api",
				Name:      "retries_total",
				Help:      "Total number of retried Adax API requests",
			},
			[]string{"endpoint"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "adax",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Duration of single Adax API calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		TokenAcquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "auth",
				Name:      "token_acquisitions_total",
				Help:      "Total number of password-grant exchanges by outcome",
			},
			[]string{"outcome"},
		),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "writes",
				Name:      "flushes_total",
				Help:      "Total number of control flushes by outcome",
			},
			[]string{"outcome"},
		),
		CoalescedEdits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "writes",
				Name:      "coalesced_edits_total",
				Help:      "Total number of setpoint edits that superseded a pending edit",
			},
		),
		SkippedUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "reads",
				Name:      "skipped_updates_total",
				Help:      "Total number of updates skipped by the rate limit or a pending write",
			},
		),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.Requests,
		m.Retries,
		m.RequestDuration,
		m.TokenAcquisitions,
		m.Flushes,
		m.CoalescedEdits,
		m.SkippedUpdates,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) request(method, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, endpoint, outcome).Inc()
}

func (m *Metrics) retry(endpoint string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observe(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) token(outcome string) {
	if m == nil {
		return
	}
	m.TokenAcquisitions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) flush(outcome string) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) coalesced() {
	if m == nil {
		return
	}
	m.CoalescedEdits.Inc()
}

func (m *Metrics) skipped() {
	if m == nil {
		return
	}
	m.SkippedUpdates.Inc()
}
