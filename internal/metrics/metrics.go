package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Time-bank operations by op (add, spend, block, unblock) and result (ok, rejected, clamped).",
}, []string{"op", "result"})

var LedgerHoursMoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "ledger",
	Name:      "hours_total",
	Help:      "Hours moved by successful ledger operations, by op.",
}, []string{"op"})

var ConsistencyAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "ledger",
	Name:      "consistency_anomalies_total",
	Help:      "Unblock requests that exceeded the blocked amount and were clamped.",
})

var ExchangeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "exchange",
	Name:      "transitions_total",
	Help:      "Exchange state transitions by target status and trigger.",
}, []string{"status", "trigger"})

var ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "moderation",
	Name:      "actions_total",
	Help:      "Admin moderation actions taken.",
}, []string{"action"})

var NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "notifications",
	Name:      "delivered_total",
	Help:      "Best-effort notification deliveries by channel and result.",
}, []string{"channel", "result"})
