package tournament

import (
	"fmt"
	"math/rand"

	"skeld/internal/game"
)

// FallbackTeam fills seats the schedule cannot cover with real entrants.
// Fallback seats play the deterministic rule-based bot and stay out of
// Elo and the standings.
const FallbackTeam = "__fallback__"

// SeatPlan is one scheduled seat: which team plays it and the role the
// deal is pinned to.
type SeatPlan struct {
	PlayerID string
	Team     string
	Role     game.Role
}

// Lobby is one scheduled game. Seats are indexed by player id
// player_0..player_{n-1}; the artifact file name derives from Index.
type Lobby struct {
	Index int
	Seats []SeatPlan
}

// Schedule deals a balanced matchup plan: every team plays the same
// number of games as impostor and as crewmate. The impostor quota per
// team is ceil(G·num_impostors/num_players); both role multisets are
// shuffled and dealt into successive lobbies, with fallback seats
// covering any shortfall. Within each lobby the assignment→seat mapping
// is shuffled again so a seat id never hints at a role.
func Schedule(teams []string, cfg game.Config, gamesPerTeam int, rng *rand.Rand) []Lobby {
	if len(teams) == 0 || gamesPerTeam <= 0 {
		return nil
	}
	impPerTeam := (gamesPerTeam*cfg.NumImpostors + cfg.NumPlayers - 1) / cfg.NumPlayers
	crewPerTeam := gamesPerTeam - impPerTeam

	var impQueue, crewQueue []string
	for _, team := range teams {
		for i := 0; i < impPerTeam; i++ {
			impQueue = append(impQueue, team)
		}
	}
	for _, team := range teams {
		for i := 0; i < crewPerTeam; i++ {
			crewQueue = append(crewQueue, team)
		}
	}
	rng.Shuffle(len(impQueue), func(i, j int) { impQueue[i], impQueue[j] = impQueue[j], impQueue[i] })
	rng.Shuffle(len(crewQueue), func(i, j int) { crewQueue[i], crewQueue[j] = crewQueue[j], crewQueue[i] })

	var lobbies []Lobby
	for idx := 0; len(impQueue) > 0 || len(crewQueue) > 0; idx++ {
		assignments := make([]SeatPlan, 0, cfg.NumPlayers)
		for j := 0; j < cfg.NumImpostors; j++ {
			team := FallbackTeam
			if n := len(impQueue); n > 0 {
				team, impQueue = impQueue[n-1], impQueue[:n-1]
			}
			assignments = append(assignments, SeatPlan{Team: team, Role: game.RoleImpostor})
		}
		for j := cfg.NumImpostors; j < cfg.NumPlayers; j++ {
			team := FallbackTeam
			if n := len(crewQueue); n > 0 {
				team, crewQueue = crewQueue[n-1], crewQueue[:n-1]
			}
			assignments = append(assignments, SeatPlan{Team: team, Role: game.RoleCrewmate})
		}

		order := rng.Perm(cfg.NumPlayers)
		seats := make([]SeatPlan, cfg.NumPlayers)
		for i, a := range assignments {
			a.PlayerID = fmt.Sprintf("player_%d", order[i])
			seats[order[i]] = a
		}
		lobbies = append(lobbies, Lobby{Index: idx, Seats: seats})
	}
	return lobbies
}
