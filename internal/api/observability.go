package api

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skeld/internal/game"
)

// Metrics with bounded cardinality. Label values come from closed sets
// (winner names, hook names, failure kinds, meeting triggers); team_elo
// is bounded by the tournament roster.
var (
	gamesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "games_completed_total",
		Help: "Finished games by winning side",
	}, []string{"winner"})

	gameRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_rounds",
		Help:    "Rounds per finished game",
		Buckets: []float64{5, 10, 15, 20, 30, 40, 50, 60},
	})

	gameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_duration_seconds",
		Help:    "Wall-clock time per finished game",
		Buckets: []float64{0.01, 0.1, 0.5, 2, 10, 30, 60, 180, 600},
	})

	roundsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rounds_resolved_total",
		Help: "Task rounds resolved across all games",
	})

	agentCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_call_seconds",
		Help:    "Agent hook latency",
		Buckets: []float64{0.0005, 0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30},
	}, []string{"hook"}) // Bounded: "init", "decide_action", "discuss", "vote", "finish"

	agentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_failures_total",
		Help: "Agent calls that timed out, errored, or returned junk",
	}, []string{"kind"}) // Bounded: "timeout", "bad_output", "error"

	killsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kills_total",
		Help: "Successful kills across all games",
	})

	meetingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetings_total",
		Help: "Concluded meetings by trigger",
	}, []string{"trigger"}) // Bounded: "body_report", "emergency_meeting"

	ejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ejections_total",
		Help: "Players voted off across all games",
	})

	activeGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_games",
		Help: "Games currently running",
	})

	// DoS detection metrics
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_clients",
		Help: "Currently subscribed websocket clients",
	})

	teamElo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "team_elo",
		Help: "Latest Elo rating per team",
	}, []string{"team"})
)

// MetricsRecorder feeds engine lifecycle notifications into the
// Prometheus registry. A single zero value serves any number of games
// running in parallel.
type MetricsRecorder struct{}

func (MetricsRecorder) GameStarted()   { activeGames.Inc() }
func (MetricsRecorder) RoundResolved() { roundsResolved.Inc() }
func (MetricsRecorder) KillCommitted() { killsTotal.Inc() }

func (MetricsRecorder) AgentCalled(hook string, elapsed time.Duration, err error) {
	agentCallSeconds.WithLabelValues(hook).Observe(elapsed.Seconds())
	if err != nil {
		agentFailures.WithLabelValues(failureKind(err)).Inc()
	}
}

func (MetricsRecorder) MeetingHeld(trigger string, ejected bool) {
	meetingsTotal.WithLabelValues(trigger).Inc()
	if ejected {
		ejectionsTotal.Inc()
	}
}

func (MetricsRecorder) GameFinished(winner, cause string, rounds int, elapsed time.Duration) {
	activeGames.Dec()
	gamesCompleted.WithLabelValues(winner).Inc()
	gameRounds.Observe(float64(rounds))
	gameDuration.Observe(elapsed.Seconds())
}

// failureKind buckets an agent error into a bounded label value.
func failureKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, game.ErrBadOutput):
		return "bad_output"
	default:
		return "error"
	}
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSClients updates the websocket subscriber gauge.
func UpdateWSClients(count int) {
	wsClients.Set(float64(count))
}

// UpdateTeamElo updates one team's rating gauge.
func UpdateTeamElo(team string, elo float64) {
	teamElo.WithLabelValues(team).Set(elo)
}
