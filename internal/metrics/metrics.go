// Package metrics defines the Prometheus metrics of the billboard server. It
// is the single source of truth for metric names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "billboard"

// RequestsTotal counts requests handled, by command kind and outcome status.
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of requests processed, by command and response status.",
	},
	[]string{"command", "status"},
)

// LoginsTotal counts login attempts by outcome ("success" or "failure").
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ActiveSessions tracks live session tokens across all connections.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of live session tokens.",
	},
)

// SessionExpiriesTotal counts sessions removed by natural expiry rather than
// logout.
var SessionExpiriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expiries_total",
		Help:      "Total number of sessions that reached the end of their period unrevoked.",
	},
)

// ConnectionsTotal counts accepted client connections.
var ConnectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "Total number of client connections accepted.",
	},
)
