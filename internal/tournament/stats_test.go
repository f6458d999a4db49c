package tournament

import (
	"math"
	"testing"

	"skeld/internal/game"
)

// crewWinResult is a crafted game: alpha's impostor killed the fallback
// seat, got ejected, and beta's two crewmates finished their tasks.
func crewWinResult() *game.Result {
	return &game.Result{
		GameID:     "g-1",
		Winner:     game.WinnerCrewmates,
		Cause:      game.CauseAllTasksCompleted,
		FinalRound: 9,
		AllRoles: map[string]game.Role{
			"player_0": game.RoleImpostor,
			"player_1": game.RoleCrewmate,
			"player_2": game.RoleCrewmate,
			"player_3": game.RoleCrewmate,
		},
		TeamMapping: map[string]string{
			"player_0": "alpha",
			"player_1": "beta",
			"player_2": "beta",
			"player_3": FallbackTeam,
		},
		GameLog: []game.RoundLog{
			{
				Round: 1,
				Results: map[string]game.ActionResult{
					"player_0": {Action: game.ActionKill, Target: "player_3", Success: true},
					"player_1": {Action: game.ActionDoTask, Target: "task_0", Success: true},
				},
			},
		},
		MeetingHistory: []game.MeetingRecord{
			{Round: 2, Trigger: game.TriggerBodyReport, Caller: "player_1", Ejected: "player_0"},
		},
	}
}

// TestAggregatorElo checks the per-seat rating updates
func TestAggregatorElo(t *testing.T) {
	agg := NewAggregator([]string{"alpha", "beta"})
	agg.Record(crewWinResult())

	standings := agg.Standings()
	if len(standings) != 2 {
		t.Fatalf("Expected 2 standings rows, got %d", len(standings))
	}
	// Even-odds game at K=32: the losing impostor seat pays 16, each
	// winning crew seat earns 16.
	if standings[0].Team != "beta" || math.Abs(standings[0].Elo-1232) > 1e-9 {
		t.Errorf("Expected beta at 1232, got %s at %f", standings[0].Team, standings[0].Elo)
	}
	if standings[1].Team != "alpha" || math.Abs(standings[1].Elo-1184) > 1e-9 {
		t.Errorf("Expected alpha at 1184, got %s at %f", standings[1].Team, standings[1].Elo)
	}
	if standings[0].Rank != 1 || standings[1].Rank != 2 {
		t.Errorf("Bad ranks: %d, %d", standings[0].Rank, standings[1].Rank)
	}
}

// TestAggregatorStats checks the counter bookkeeping
func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator([]string{"alpha", "beta"})
	agg.Record(crewWinResult())

	alpha, ok := agg.Stats("alpha")
	if !ok {
		t.Fatal("Missing alpha stats")
	}
	if alpha.Games != 1 || alpha.Wins != 0 || alpha.Losses != 1 {
		t.Errorf("Alpha record = %d/%d/%d, want 1 game, 0 wins, 1 loss", alpha.Games, alpha.Wins, alpha.Losses)
	}
	if alpha.GamesAsImpostor != 1 || alpha.GamesAsCrewmate != 0 {
		t.Errorf("Alpha role split = %d/%d, want 1 impostor, 0 crew", alpha.GamesAsImpostor, alpha.GamesAsCrewmate)
	}
	if alpha.Kills != 1 {
		t.Errorf("Alpha kills = %d, want 1", alpha.Kills)
	}
	if alpha.TimesEjected != 1 {
		t.Errorf("Alpha ejections = %d, want 1", alpha.TimesEjected)
	}
	if alpha.SurvivalCount != 0 {
		t.Errorf("Alpha survivals = %d, want 0", alpha.SurvivalCount)
	}

	beta, ok := agg.Stats("beta")
	if !ok {
		t.Fatal("Missing beta stats")
	}
	if beta.Games != 2 || beta.Wins != 2 || beta.Losses != 0 {
		t.Errorf("Beta record = %d/%d/%d, want 2 games, 2 wins, 0 losses", beta.Games, beta.Wins, beta.Losses)
	}
	if beta.GamesAsCrewmate != 2 {
		t.Errorf("Beta crew games = %d, want 2", beta.GamesAsCrewmate)
	}
	if beta.TasksCompleted != 1 {
		t.Errorf("Beta task ticks = %d, want 1", beta.TasksCompleted)
	}
	if beta.SurvivalCount != 2 {
		t.Errorf("Beta survivals = %d, want 2", beta.SurvivalCount)
	}

	if _, ok := agg.Stats(FallbackTeam); ok {
		t.Error("Fallback team should carry no stats")
	}
}

// TestStandingsWinRate checks the rounded win-rate column
func TestStandingsWinRate(t *testing.T) {
	agg := NewAggregator([]string{"alpha", "beta"})
	result := crewWinResult()
	agg.Record(result)
	standings := agg.Standings()
	for _, s := range standings {
		switch s.Team {
		case "beta":
			if s.WinRate != 1.0 {
				t.Errorf("Beta win rate = %f, want 1.0", s.WinRate)
			}
			if s.Games != 2 || s.AsCrewmate != 2 {
				t.Errorf("Beta games = %d (crew %d), want 2 (2)", s.Games, s.AsCrewmate)
			}
		case "alpha":
			if s.WinRate != 0.0 {
				t.Errorf("Alpha win rate = %f, want 0.0", s.WinRate)
			}
		}
	}
}

// TestStandingsTieBreak checks names order equal ratings
func TestStandingsTieBreak(t *testing.T) {
	agg := NewAggregator([]string{"bravo", "alpha"})
	standings := agg.Standings()
	if standings[0].Team != "alpha" || standings[1].Team != "bravo" {
		t.Errorf("Expected alphabetical tie-break, got %s then %s", standings[0].Team, standings[1].Team)
	}
}
