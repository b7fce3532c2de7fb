package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector on prometheus counters and gauges.
type PrometheusCollector struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge

	sessionsActive prometheus.Gauge

	authAttemptsTotal *prometheus.CounterVec

	messagesPersistedTotal *prometheus.CounterVec

	pushEnqueuedTotal *prometheus.CounterVec
	pushDroppedTotal  *prometheus.CounterVec

	presenceEdgesTotal *prometheus.CounterVec

	cacheTotal *prometheus.CounterVec
}

// NewPrometheusCollector registers every metric on reg and returns the
// collector.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uchat_connections_total",
			Help: "Total number of websocket connections accepted.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uchat_connections_active",
			Help: "Number of currently open websocket connections.",
		}),

		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uchat_sessions_active",
			Help: "Number of live sessions in the registry.",
		}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_auth_attempts_total",
			Help: "Total number of login attempts.",
		}, []string{"result"}),

		messagesPersistedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_messages_persisted_total",
			Help: "Total number of messages written to the store.",
		}, []string{"scope"}),

		pushEnqueuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_push_enqueued_total",
			Help: "Total number of push frames accepted by a mailbox.",
		}, []string{"kind"}),
		pushDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_push_dropped_total",
			Help: "Total number of push frames dropped on closed or overflowing mailboxes.",
		}, []string{"kind"}),

		presenceEdgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_presence_edges_total",
			Help: "Total number of first-login and last-logout transitions.",
		}, []string{"edge"}),

		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uchat_roster_cache_total",
			Help: "Roster cache lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.sessionsActive,
		c.authAttemptsTotal,
		c.messagesPersistedTotal,
		c.pushEnqueuedTotal,
		c.pushDroppedTotal,
		c.presenceEdgesTotal,
		c.cacheTotal,
	)

	return c
}

func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

func (c *PrometheusCollector) SessionInserted() {
	c.sessionsActive.Inc()
}

func (c *PrometheusCollector) SessionDeleted() {
	c.sessionsActive.Dec()
}

func (c *PrometheusCollector) AuthAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) MessagePersisted(scope string) {
	c.messagesPersistedTotal.WithLabelValues(scope).Inc()
}

func (c *PrometheusCollector) PushEnqueued(kind string) {
	c.pushEnqueuedTotal.WithLabelValues(kind).Inc()
}

func (c *PrometheusCollector) PushDropped(kind string) {
	c.pushDroppedTotal.WithLabelValues(kind).Inc()
}

func (c *PrometheusCollector) PresenceEdge(online bool) {
	edge := "offline"
	if online {
		edge = "online"
	}
	c.presenceEdgesTotal.WithLabelValues(edge).Inc()
}

func (c *PrometheusCollector) CacheHit(kind string) {
	c.cacheTotal.WithLabelValues(kind, "hit").Inc()
}

func (c *PrometheusCollector) CacheMiss(kind string) {
	c.cacheTotal.WithLabelValues(kind, "miss").Inc()
}

// Handler serves the registry in the prometheus exposition format; the REST
// router mounts it at /metrics when enabled.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
