package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "berth"

// metrics holds the dashboard's Prometheus instruments. Request metrics
// are labelled by chi route pattern, never raw paths, to keep cardinality
// flat.
type metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	registeredProjects prometheus.Gauge
	allocatedPorts     prometheus.Gauge
	registryReloads    prometheus.Counter
	reloadClients      prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total dashboard HTTP requests by route and status",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Dashboard HTTP requests currently being served",
		}),

		registeredProjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "registered_projects",
			Help:      "Projects currently present in the registry",
		}),

		allocatedPorts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "allocated_ports",
			Help:      "Ports currently claimed across all registry records",
		}),

		registryReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "registry_reloads_total",
			Help:      "Times the dashboard reloaded the registry from disk",
		}),

		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "livereload_clients",
			Help:      "Connected livereload websocket clients",
		}),
	}
}
