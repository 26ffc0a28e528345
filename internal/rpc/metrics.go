package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expenso_tool_requests_total",
			Help: "Tool invocations by tool name and outcome (ok or error kind).",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "expenso_tool_duration_seconds",
			Help:    "Tool invocation duration by tool name.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)
