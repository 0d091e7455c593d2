// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_commits_total",
			Help: "Total number of committed attendance records",
		},
		[]string{"class", "scope", "result"},
	)

	ScopeSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_scope_switches_total",
			Help: "Scope changes by resolved action and whether they were applied",
		},
		[]string{"class", "action", "applied"},
	)

	SessionHeadcount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_session_headcount",
			Help:    "Distribution of headcount per committed record",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
		[]string{"class"},
	)

	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_open_sessions",
			Help: "Attendance sessions held in process memory (not reported for the redis backend)",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
