package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeCompleted = "completed"
	OutcomeNotMet    = "not_met"
	OutcomeError     = "error"

	UnknownQuest = "unknown"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	QuestsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quests_started_total",
			Help: "Quests moved to in_progress",
		},
		[]string{"quest_id"},
	)
	QuestVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_verifications_total",
			Help: "Quest verification attempts by quest type and outcome",
		},
		[]string{"type", "outcome"},
	)
	XPAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Experience points awarded for completed quests",
		},
	)
)

var registerOnce sync.Once

// Register adds the collectors to reg. Only the first call has any effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			QuestsStarted,
			QuestVerifications,
			XPAwarded,
		)
	})
}
