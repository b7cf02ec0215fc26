package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trusthub_fetch_total",
		Help: "Snapshot fetches, by outcome status.",
	}, []string{"status"})

	publishTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthub_publish_total",
		Help: "Snapshots published into the query indices.",
	})

	promoteTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthub_promote_total",
		Help: "Active-release promotions.",
	})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthub_audit_write_failures_total",
		Help: "Audit events dropped because the append failed.",
	})

	replayRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthub_replay_runs_total",
		Help: "Persisted evidence replay runs.",
	})
)
