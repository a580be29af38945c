// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ClockIns counts recorded clock-ins by status label.
	ClockIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "clockins_total",
		Help:      "Clock-ins recorded, by status.",
	}, []string{"status"})

	// GateDenials counts requests rejected for a missing or invalid device token.
	GateDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "gate_denials_total",
		Help:      "Requests denied by the device token gate.",
	})

	// RollupFailures counts aborted rollups by tier (weekly, monthly).
	RollupFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "rollup_failures_total",
		Help:      "Rollup runs that failed, by tier.",
	}, []string{"tier"})

	// RollupRows counts summary rows written, by tier and op (update, append).
	RollupRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "absensi",
		Name:      "rollup_rows_total",
		Help:      "Summary rows written, by tier and operation.",
	}, []string{"tier", "op"})
)

func init() {
	prometheus.MustRegister(ClockIns, GateDenials, RollupFailures, RollupRows)
}
