package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"career-quest/gamification"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	eventsTotal          *prometheus.CounterVec
	xpAwardedTotal       prometheus.Counter
	achievementsUnlocked *prometheus.CounterVec
	challengesCompleted  prometheus.Counter
	effectsSkippedTotal  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"endpoint", "method", "status"}),
		httpRequestDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint", "method"}),
		eventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_events_total",
			Help: "Gamification events applied, by kind",
		}, []string{"kind"}),
		xpAwardedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gamification_xp_awarded_total",
			Help: "XP awarded across all users",
		}),
		achievementsUnlocked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_achievements_unlocked_total",
			Help: "Achievement unlocks, by achievement code",
		}, []string{"code"}),
		challengesCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "gamification_daily_challenges_completed_total",
			Help: "Daily challenge completions",
		}),
		effectsSkippedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_effects_skipped_total",
			Help: "Side effects skipped because a step failed",
		}, []string{"step"}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	m.httpRequestDurationSeconds.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

// ObserveOutcome records one applied event.
func (m *Metrics) ObserveOutcome(kind EventKind, out *Outcome) {
	if m == nil || out == nil {
		return
	}
	m.eventsTotal.WithLabelValues(string(kind)).Inc()
	if out.XPAwarded > 0 {
		m.xpAwardedTotal.Add(float64(out.XPAwarded))
	}
	for _, a := range out.NewlyUnlocked {
		m.achievementsUnlocked.WithLabelValues(a.Code).Inc()
	}
	if out.DailyChallenge != nil && out.DailyChallenge.NewlyCompleted {
		m.challengesCompleted.Inc()
	}
	for _, e := range out.Effects {
		if e.Status == gamification.EffectSkipped {
			m.effectsSkippedTotal.WithLabelValues(e.Step).Inc()
		}
	}
}
