package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powerstats"

// Metrics holds the service's collectors. All methods are safe on a nil receiver,
// which lets tests and tools run without a registry.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	BeaconsTotal    *prometheus.CounterVec
	SessionsStarted prometheus.Counter
	TrackedSessions prometheus.Gauge

	ActiveSessions     prometheus.Gauge
	HourlyPageviews    prometheus.Gauge
	PageviewsPerMinute prometheus.Gauge

	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		BeaconsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "beacons_total",
				Help:      "Tracking beacons received, by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions opened by a first pageview",
		}),
		TrackedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_sessions",
			Help:      "Sessions currently held in memory",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Distinct sessions with a pageview in the last five minutes",
		}),
		HourlyPageviews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pageviews_last_hour",
			Help:      "Pageviews recorded in the last hour",
		}),
		PageviewsPerMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pageviews_last_minute",
			Help:      "Pageviews recorded in the last minute",
		}),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Analytics query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.BeaconsTotal,
			m.SessionsStarted,
			m.TrackedSessions,
			m.ActiveSessions,
			m.HourlyPageviews,
			m.PageviewsPerMinute,
			m.QueryDuration,
		)
	}
	return m
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveBeacon counts one ingested beacon.
func (m *Metrics) ObserveBeacon(kind string, err error) {
	if m == nil {
		return
	}
	m.BeaconsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// SessionStarted counts a new session and updates the in-memory size.
func (m *Metrics) SessionStarted(tracked int) {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.TrackedSessions.Set(float64(tracked))
}

// SetRealtime publishes the latest real-time counters.
func (m *Metrics) SetRealtime(active, hourly, perMinute int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(active))
	m.HourlyPageviews.Set(float64(hourly))
	m.PageviewsPerMinute.Set(float64(perMinute))
}

// ObserveQuery records how long an analytics query took.
func (m *Metrics) ObserveQuery(query string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query, outcome(err)).Observe(time.Since(started).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
