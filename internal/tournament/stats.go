package tournament

import (
	"math"
	"sort"
	"sync"

	"skeld/internal/game"
)

// TeamStats accumulates one team's tournament counters across all the
// seats it played.
type TeamStats struct {
	Games           int `json:"games"`
	Wins            int `json:"wins"`
	Losses          int `json:"losses"`
	GamesAsImpostor int `json:"games_as_impostor"`
	GamesAsCrewmate int `json:"games_as_crewmate"`
	Kills           int `json:"kills"`
	TimesEjected    int `json:"times_ejected"`
	SurvivalCount   int `json:"survival_count"`
	TasksCompleted  int `json:"tasks_completed"`
}

// Standing is one row of the final table.
type Standing struct {
	Rank       int     `json:"rank"`
	Team       string  `json:"team"`
	Elo        float64 `json:"elo"`
	WinRate    float64 `json:"win_rate"`
	Games      int     `json:"games"`
	AsImpostor int     `json:"as_impostor"`
	AsCrewmate int     `json:"as_crewmate"`
}

// Aggregator folds finished games into Elo ratings and per-team stats.
// A single mutex serializes updates so the runner may complete games in
// any order; ratings therefore depend on completion order, which is
// fixed only when the tournament runs with parallel=1.
type Aggregator struct {
	mu    sync.Mutex
	elo   map[string]float64
	stats map[string]*TeamStats
}

// NewAggregator seeds every entrant at InitialElo with zeroed stats.
// The fallback team is not an entrant.
func NewAggregator(teams []string) *Aggregator {
	a := &Aggregator{
		elo:   make(map[string]float64, len(teams)),
		stats: make(map[string]*TeamStats, len(teams)),
	}
	for _, team := range teams {
		a.elo[team] = InitialElo
		a.stats[team] = &TeamStats{}
	}
	return a
}

// Record folds one game result into ratings and stats. Elo first: K
// selection reads the games count from before this game.
func (a *Aggregator) Record(result *game.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updateElo(result)
	a.updateStats(result)
}

// updateElo applies one rating delta per non-fallback seat. Expected
// scores read the ratings as they stood when the game entered the
// aggregator, so seat iteration order does not matter.
func (a *Aggregator) updateElo(result *game.Result) {
	entry := make(map[string]float64, len(a.elo))
	for team, rating := range a.elo {
		entry[team] = rating
	}
	for pid, team := range result.TeamMapping {
		if team == FallbackTeam {
			continue
		}
		stats, ok := a.stats[team]
		if !ok {
			continue
		}
		var oppSum float64
		oppN := 0
		for oid, oteam := range result.TeamMapping {
			if oid == pid || oteam == FallbackTeam {
				continue
			}
			oppSum += entry[oteam]
			oppN++
		}
		oppAvg := InitialElo
		if oppN > 0 {
			oppAvg = oppSum / float64(oppN)
		}
		k := kProvisional
		if stats.Games >= provisionalGames {
			k = kEstablished
		}
		a.elo[team] += EloDelta(entry[team], oppAvg, a.seatWon(result, pid), k)
	}
}

func (a *Aggregator) seatWon(result *game.Result, pid string) bool {
	role := result.AllRoles[pid]
	return (role == game.RoleCrewmate && result.Winner == game.WinnerCrewmates) ||
		(role == game.RoleImpostor && result.Winner == game.WinnerImpostors)
}

func (a *Aggregator) updateStats(result *game.Result) {
	for pid, team := range result.TeamMapping {
		stats, ok := a.stats[team]
		if !ok {
			continue
		}
		stats.Games++
		if a.seatWon(result, pid) {
			stats.Wins++
		} else {
			stats.Losses++
		}
		if result.AllRoles[pid] == game.RoleImpostor {
			stats.GamesAsImpostor++
		} else {
			stats.GamesAsCrewmate++
		}
		stats.Kills += result.Kills(pid)
		stats.TasksCompleted += result.TasksCompleted(pid)
		if result.WasEjected(pid) {
			stats.TimesEjected++
		}
		if result.Survived(pid) {
			stats.SurvivalCount++
		}
	}
}

// Standings returns the current table, best rating first, names breaking
// ties.
func (a *Aggregator) Standings() []Standing {
	a.mu.Lock()
	defer a.mu.Unlock()

	teams := make([]string, 0, len(a.elo))
	for team := range a.elo {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if a.elo[teams[i]] != a.elo[teams[j]] {
			return a.elo[teams[i]] > a.elo[teams[j]]
		}
		return teams[i] < teams[j]
	})

	standings := make([]Standing, 0, len(teams))
	for rank, team := range teams {
		stats := a.stats[team]
		winRate := 0.0
		if stats.Games > 0 {
			winRate = float64(stats.Wins) / float64(stats.Games)
		}
		standings = append(standings, Standing{
			Rank:       rank + 1,
			Team:       team,
			Elo:        math.Round(a.elo[team]*10) / 10,
			WinRate:    math.Round(winRate*1000) / 1000,
			Games:      stats.Games,
			AsImpostor: stats.GamesAsImpostor,
			AsCrewmate: stats.GamesAsCrewmate,
		})
	}
	return standings
}

// Stats returns a copy of one team's counters; ok is false for unknown
// teams (including the fallback).
func (a *Aggregator) Stats(team string) (TeamStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats, ok := a.stats[team]
	if !ok {
		return TeamStats{}, false
	}
	return *stats, true
}
