package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studyhub"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_operations_total", Help: "Login, register and logout attempts by outcome (success, rejected, error)."},
		[]string{"operation", "outcome"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "session_events_total", Help: "Auth-state change events received by session managers."},
		[]string{"event"},
	)
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "guard_decisions_total", Help: "Route guard verdicts by state."},
		[]string{"state"},
	)
	QuestionDownloads = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "question_downloads_total", Help: "Past question downloads started."},
	)
	ActiveClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "portal_clients_active", Help: "Portal clients currently held in memory."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthOperations)
	reg.MustRegister(SessionEvents)
	reg.MustRegister(GuardDecisions)
	reg.MustRegister(QuestionDownloads)
	reg.MustRegister(ActiveClients)
}
