package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	actionsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_actions_dispatched_total",
			Help: "Total number of state actions dispatched, by action type.",
		},
		[]string{"action"},
	)
	activeListeners = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_active_listeners",
			Help: "Number of attached snapshot listeners.",
		},
		[]string{"kind"},
	)
	listenerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_listener_errors_total",
			Help: "Total number of snapshot listener failures.",
		},
		[]string{"kind"},
	)
	sendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_send_failures_total",
			Help: "Total number of messages that could not be persisted.",
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_sessions",
			Help: "Number of running synchronization sessions.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		actionsDispatchedTotal,
		activeListeners,
		listenerErrorsTotal,
		sendFailuresTotal,
		activeSessions,
		wsActiveConnections,
		amqpPublishErrorsTotal,
	)
}

func IncActionDispatched(action string) {
	actionsDispatchedTotal.WithLabelValues(action).Inc()
}

func IncListeners(kind string) {
	activeListeners.WithLabelValues(kind).Inc()
}

func DecListeners(kind string) {
	activeListeners.WithLabelValues(kind).Dec()
}

func IncListenerError(kind string) {
	listenerErrorsTotal.WithLabelValues(kind).Inc()
}

func IncSendFailure() {
	sendFailuresTotal.Inc()
}

func IncSessions() {
	activeSessions.Inc()
}

func DecSessions() {
	activeSessions.Dec()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
