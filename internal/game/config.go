package game

import (
	"fmt"
	"time"
)

// Config holds the tunable numeric parameters of a single game. The zero
// value is not usable; start from DefaultConfig and override.
type Config struct {
	NumPlayers                 int  `json:"num_players"`
	NumImpostors               int  `json:"num_impostors"`
	MaxTotalRounds             int  `json:"max_total_rounds"`
	KillCooldown               int  `json:"kill_cooldown"`
	DiscussionRotations        int  `json:"discussion_rotations"`
	MessageCharLimit           int  `json:"message_char_limit"`
	EmergencyMeetingsPerPlayer int  `json:"emergency_meetings_per_player"`
	SabotageCountdown          int  `json:"sabotage_countdown"`
	SabotageCooldown           int  `json:"sabotage_cooldown"`
	TasksPerCrewmate           int  `json:"tasks_per_crewmate"`
	VisualTasksPerCrewmate     int  `json:"visual_tasks_per_crewmate"`
	ConfirmEjects              bool `json:"confirm_ejects"`
	GhostTasksEnabled          bool `json:"ghost_tasks_enabled"`
	AgentTimeoutSeconds        int  `json:"agent_timeout_seconds"`
	MemorySightingCap          int  `json:"memory_sighting_cap"`
	MemoryMovementCap          int  `json:"memory_movement_cap"`
}

// DefaultConfig returns the standard 7-player, 2-impostor ruleset.
func DefaultConfig() Config {
	return Config{
		NumPlayers:                 7,
		NumImpostors:               2,
		MaxTotalRounds:             60,
		KillCooldown:               6,
		DiscussionRotations:        3,
		MessageCharLimit:           500,
		EmergencyMeetingsPerPlayer: 1,
		SabotageCountdown:          12,
		SabotageCooldown:           8,
		TasksPerCrewmate:           8,
		VisualTasksPerCrewmate:     1,
		ConfirmEjects:              true,
		GhostTasksEnabled:          true,
		AgentTimeoutSeconds:        30,
		MemorySightingCap:          20,
		MemoryMovementCap:          15,
	}
}

// Validate rejects rulesets that cannot produce a playable game.
func (c Config) Validate() error {
	if c.NumPlayers < 4 {
		return &ConfigError{Field: "num_players", Msg: fmt.Sprintf("need at least 4 players, got %d", c.NumPlayers)}
	}
	if c.NumImpostors < 1 {
		return &ConfigError{Field: "num_impostors", Msg: "need at least 1 impostor"}
	}
	if float64(c.NumImpostors) >= float64(c.NumPlayers)/2 {
		return &ConfigError{Field: "num_impostors", Msg: fmt.Sprintf("%d impostors among %d players; impostors must be fewer than half", c.NumImpostors, c.NumPlayers)}
	}
	if c.VisualTasksPerCrewmate > c.TasksPerCrewmate {
		return &ConfigError{Field: "visual_tasks_per_crewmate", Msg: fmt.Sprintf("%d visual tasks exceed the %d tasks per crewmate", c.VisualTasksPerCrewmate, c.TasksPerCrewmate)}
	}
	if c.MaxTotalRounds < 10 {
		return &ConfigError{Field: "max_total_rounds", Msg: fmt.Sprintf("games need at least 10 rounds, got %d", c.MaxTotalRounds)}
	}
	return nil
}

// AgentTimeout returns the per-call deadline for agent hooks.
func (c Config) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutSeconds) * time.Second
}
