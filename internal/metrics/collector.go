package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	resolutions  *prometheus.CounterVec
	provisioning *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	return &Collector{
		resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edustack_resolutions_total",
			Help: "School resolution attempts by outcome",
		}, []string{"outcome"}),
		provisioning: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edustack_provisioning_total",
			Help: "Tenant provisioning attempts by outcome",
		}, []string{"outcome"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edustack_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (c *Collector) RecordResolution(outcome string) {
	c.resolutions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordProvisioning(outcome string) {
	c.provisioning.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	c.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
