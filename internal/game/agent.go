package game

import "context"

// GameStartConfig is the one-time briefing every agent receives before
// round 1. Impostors additionally learn their teammates; task lists are
// real for crewmates and cover stories for impostors.
type GameStartConfig struct {
	YourID            string              `json:"your_id"`
	YourRole          Role                `json:"your_role"`
	ImpostorTeammates []string            `json:"impostor_teammates,omitempty"`
	Players           []string            `json:"players"`
	Tasks             []Task              `json:"tasks"`
	MapAdjacency      map[string][]string `json:"map_adjacency"`
	SpawnRoom         string              `json:"spawn_room"`
	Config            Config              `json:"config"`
}

// Agent is a decision-maker for one player. The engine owns all game
// state; agents only ever see their own observations. Implementations
// must honor ctx, which carries the per-call decision deadline, and must
// be safe for calls from different goroutines across phases (the engine
// never calls the same agent concurrently with itself).
//
// Any error or deadline overrun downgrades the decision: actions become
// wait, discussion turns are skipped, votes become skip.
type Agent interface {
	// Init hands the agent its briefing before the first round.
	Init(ctx context.Context, start GameStartConfig) error

	// DecideAction picks the agent's task-phase action.
	DecideAction(ctx context.Context, obs *Observation) (Action, error)

	// Discuss produces one utterance for the current discussion rotation.
	// An empty string stays silent.
	Discuss(ctx context.Context, obs *Observation) (string, error)

	// Vote returns a living player's id or "skip".
	Vote(ctx context.Context, obs *Observation) (string, error)

	// Finish delivers the final result after GAME_OVER, roles revealed.
	Finish(ctx context.Context, result *Result) error
}
