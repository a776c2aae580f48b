package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for session lifecycle events.
// A nil *Metrics records nothing.
type Metrics struct {
	LoginsTotal     *prometheus.CounterVec
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	LogoutsTotal    *prometheus.CounterVec
	LoggedIn        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LoginsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notifiq",
				Subsystem: "session",
				Name:      "logins_total",
				Help:      "Total login attempts by result",
			},
			[]string{"result"}, // result=ok/invalid_credentials/network/server/...
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notifiq",
				Subsystem: "session",
				Name:      "refreshes_total",
				Help:      "Total refresh attempts by result",
			},
			[]string{"result"},
		),
		RefreshDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "notifiq",
				Subsystem: "session",
				Name:      "refresh_duration_seconds",
				Help:      "Refresh round trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		LogoutsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notifiq",
				Subsystem: "session",
				Name:      "logouts_total",
				Help:      "Total sessions cleared by reason",
			},
			[]string{"reason"},
		),
		LoggedIn: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notifiq",
				Subsystem: "session",
				Name:      "logged_in",
				Help:      "1 while a session is logged in",
			},
		),
	}
}

func (m *Metrics) observeLogin(err error) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(Kind(err)).Inc()
}

func (m *Metrics) observeRefresh(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(Kind(err)).Inc()
	if elapsed > 0 {
		m.RefreshDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeLogout(reason string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) setState(state State) {
	if m == nil {
		return
	}
	if state == StateLoggedIn {
		m.LoggedIn.Set(1)
	} else {
		m.LoggedIn.Set(0)
	}
}
