package game

import (
	"sort"
	"time"
)

// Result is the portable summary of a finished game: the verdict, the
// full deal, and every archive needed to audit or replay it.
type Result struct {
	GameID          string                `json:"game_id"`
	Seed            int64                 `json:"seed"`
	Winner          string                `json:"winner"`
	Cause           string                `json:"cause"`
	FinalRound      int                   `json:"final_round"`
	AllRoles        map[string]Role       `json:"all_roles"`
	TeamMapping     map[string]string     `json:"team_mapping,omitempty"`
	MovementHistory map[string][]Movement `json:"movement_history"`
	SightingHistory map[string][]Sighting `json:"sighting_history"`
	MeetingHistory  []MeetingRecord       `json:"meeting_history"`
	GameLog         []RoundLog            `json:"game_log"`
	StartedAt       time.Time             `json:"started_at"`
	DurationMS      int64                 `json:"duration_ms"`
}

// ImpostorIDs returns the dealt impostors in id order.
func (r *Result) ImpostorIDs() []string {
	var out []string
	for _, id := range sortedRoleIDs(r.AllRoles) {
		if r.AllRoles[id] == RoleImpostor {
			out = append(out, id)
		}
	}
	return out
}

// Survived reports whether a player was still alive at game end, judged
// from the game log: a player is dead once they appear as a successful
// kill target or as an ejection.
func (r *Result) Survived(id string) bool {
	for _, entry := range r.GameLog {
		for _, result := range entry.Results {
			if result.Action == ActionKill && result.Success && result.Target == id {
				return false
			}
		}
	}
	for _, meeting := range r.MeetingHistory {
		if meeting.Ejected == id {
			return false
		}
	}
	return true
}

// TasksCompleted counts the task ticks a player landed across the game.
func (r *Result) TasksCompleted(id string) int {
	n := 0
	for _, entry := range r.GameLog {
		if result, ok := entry.Results[id]; ok && result.Action == ActionDoTask && result.Success {
			n++
		}
	}
	return n
}

// Kills counts a player's successful kills.
func (r *Result) Kills(id string) int {
	n := 0
	for _, entry := range r.GameLog {
		if result, ok := entry.Results[id]; ok && result.Action == ActionKill && result.Success {
			n++
		}
	}
	return n
}

// WasEjected reports whether the player left the game by vote.
func (r *Result) WasEjected(id string) bool {
	for _, meeting := range r.MeetingHistory {
		if meeting.Ejected == id {
			return true
		}
	}
	return false
}

func sortedRoleIDs(roles map[string]Role) []string {
	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
