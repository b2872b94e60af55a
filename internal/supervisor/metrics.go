package supervisor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	spawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelshim",
			Subsystem: "supervisor",
			Name:      "spawns_total",
			Help:      "Child processes started, by role",
		},
		[]string{"role"},
	)

	exitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelshim",
			Subsystem: "supervisor",
			Name:      "exits_total",
			Help:      "Child processes reaped by the wait loop",
		},
		[]string{"role", "tracked"},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelshim",
			Subsystem: "supervisor",
			Name:      "signals_total",
			Help:      "Signals delivered to children by the termination handler",
		},
		[]string{"role", "signal"},
	)
)

func init() {
	prometheus.MustRegister(spawnsTotal, exitsTotal, signalsTotal)
}

func observeExit(role string, tracked bool) {
	if role == "" {
		role = "unknown"
	}
	exitsTotal.WithLabelValues(role, strconv.FormatBool(tracked)).Inc()
}
