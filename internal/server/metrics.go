package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type bridgeMetrics struct {
	requests *prometheus.CounterVec
	streams  prometheus.Gauge
}

func newBridgeMetrics(reg prometheus.Registerer) (*bridgeMetrics, error) {
	m := &bridgeMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adax",
				Subsystem: "bridge",
				Name:      "http_requests_total",
				Help:      "Total number of bridge HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		streams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "adax",
				Subsystem: "bridge",
				Name:      "stream_clients",
				Help:      "Number of connected room stream clients",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.requests, m.streams} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
