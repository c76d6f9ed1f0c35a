package devserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsBroadcastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewboard",
		Subsystem: "devserver",
		Name:      "events_broadcast_total",
		Help:      "Total stream events broadcast, by type.",
	}, []string{"type"})

	runsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewboard",
		Subsystem: "devserver",
		Name:      "runs_started_total",
		Help:      "Total simulated project runs started.",
	})

	llmCallsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewboard",
		Subsystem: "devserver",
		Name:      "llm_calls_stored_total",
		Help:      "Total LLM call detail records stored.",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crewboard",
		Subsystem: "devserver",
		Name:      "ws_connections_active",
		Help:      "Number of active WebSocket connections.",
	})
)
