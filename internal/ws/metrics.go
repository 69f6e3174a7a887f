package ws

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dataviewer"

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	clients       *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	slowClients   prometheus.Counter
	requests      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clients: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_clients",
				Help:      "Connected push clients by table.",
			},
			[]string{"table"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications broadcast by channel.",
			},
			[]string{"channel"},
		),
		slowClients: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_slow_clients_total",
				Help:      "Push clients disconnected for not keeping up.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "REST requests by route and status code.",
			},
			[]string{"route", "code"},
		),
	}
	m.registry.MustRegister(
		m.clients,
		m.notifications,
		m.slowClients,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
