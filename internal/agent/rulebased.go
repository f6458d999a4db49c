package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"skeld/internal/game"
)

// RuleBasedBot is the scripted fallback policy. Crewmates triage: report
// a body, walk to a critical sabotage, work the task in front of them,
// otherwise head for the nearest pending task. Impostors kill when alone
// with a single crewmate, fake tasks while observed, and sabotage the
// reactor off cooldown. Randomness is confined to roaming and votes.
type RuleBasedBot struct {
	rng       *rand.Rand
	id        string
	role      game.Role
	teammates map[string]bool
	adjacency map[string][]string

	// tasks is the latest task list seen; it goes stale only while a
	// comms sabotage hides the real one.
	tasks []game.TaskView
}

// NewRuleBasedBot builds a RuleBasedBot with its own seeded generator.
func NewRuleBasedBot(seed int64) *RuleBasedBot {
	return &RuleBasedBot{rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBasedBot) Init(ctx context.Context, start game.GameStartConfig) error {
	b.id = start.YourID
	b.role = start.YourRole
	b.teammates = make(map[string]bool, len(start.ImpostorTeammates))
	for _, id := range start.ImpostorTeammates {
		b.teammates[id] = true
	}
	b.adjacency = start.MapAdjacency
	b.tasks = make([]game.TaskView, 0, len(start.Tasks))
	for _, t := range start.Tasks {
		b.tasks = append(b.tasks, game.TaskView{
			IDToUse:  t.ID,
			Name:     t.Name,
			Location: t.Location,
			Progress: t.Progress,
			Required: t.Required,
			Visual:   t.Visual,
		})
	}
	return nil
}

func (b *RuleBasedBot) DecideAction(ctx context.Context, obs *game.Observation) (game.Action, error) {
	if obs == nil {
		return game.Wait(), nil
	}
	loc := obs.Identity.YourLocation
	if obs.Tasks != nil && obs.Tasks.YourTasks != nil {
		b.tasks = obs.Tasks.YourTasks
	}

	if avail := obs.AvailableActions; avail != nil && avail.CanReport {
		return game.Action{Type: game.ActionReport}, nil
	}

	// A critical sabotage outranks everything except a report.
	if obs.Sabotage != nil && obs.Sabotage.Active != nil {
		sab := obs.Sabotage.Active
		if sab.Type == "reactor" || sab.Type == "o2" {
			rooms := make([]string, 0, len(sab.FixRequired))
			for room := range sab.FixRequired {
				rooms = append(rooms, room)
			}
			sort.Strings(rooms)
			if len(rooms) > 0 {
				if next := NextHop(loc, rooms[0], b.adjacency); next != "" {
					return game.Action{Type: game.ActionMove, Target: next}, nil
				}
				return game.Action{Type: game.ActionFixSabotage}, nil
			}
		}
	}

	if b.role == game.RoleCrewmate {
		for _, t := range b.tasks {
			if t.Location == loc && t.Progress < t.Required {
				return game.Action{Type: game.ActionDoTask, Target: t.IDToUse}, nil
			}
		}
		if target, ok := b.nearestPending(loc); ok {
			if next := NextHop(loc, target, b.adjacency); next != "" {
				return game.Action{Type: game.ActionMove, Target: next}, nil
			}
		}
	}

	if b.role == game.RoleImpostor && obs.RoomObservations != nil {
		room := obs.RoomObservations
		var crew []string
		for _, p := range room.PlayersPresent {
			if !b.teammates[p.ID] {
				crew = append(crew, p.ID)
			}
		}
		avail := obs.AvailableActions
		if len(crew) == 1 && len(room.PlayersPresent) == 1 && avail != nil && avail.CanKill {
			return game.Action{Type: game.ActionKill, Target: crew[0]}, nil
		}
		if len(room.PlayersPresent) > 0 {
			return game.Action{Type: game.ActionFakeTask}, nil
		}
		if avail != nil && avail.CanSabotage {
			return game.Action{Type: game.ActionSabotage, Target: "reactor"}, nil
		}
	}

	if room := obs.RoomObservations; room != nil && len(room.AdjacentRooms) > 0 {
		return game.Action{Type: game.ActionMove, Target: room.AdjacentRooms[b.rng.Intn(len(room.AdjacentRooms))]}, nil
	}
	return game.Wait(), nil
}

// nearestPending picks the closest room holding an incomplete task,
// breaking distance ties by task order.
func (b *RuleBasedBot) nearestPending(from string) (string, bool) {
	best, bestLen := "", -1
	for _, t := range b.tasks {
		if t.Progress >= t.Required {
			continue
		}
		path := ShortestPath(from, t.Location, b.adjacency)
		if path == nil {
			continue
		}
		if bestLen == -1 || len(path) < bestLen {
			best, bestLen = t.Location, len(path)
		}
	}
	return best, bestLen != -1
}

func (b *RuleBasedBot) Discuss(ctx context.Context, obs *game.Observation) (string, error) {
	if b.role == game.RoleImpostor {
		return fmt.Sprintf("I was in %s doing my fake task.", obs.Identity.YourLocation), nil
	}
	return fmt.Sprintf("I was in %s.", obs.Identity.YourLocation), nil
}

func (b *RuleBasedBot) Vote(ctx context.Context, obs *game.Observation) (string, error) {
	var alive []string
	if obs.Players != nil {
		for _, id := range obs.Players.Alive {
			if id != b.id {
				alive = append(alive, id)
			}
		}
	}
	if b.role == game.RoleImpostor {
		var crew []string
		for _, id := range alive {
			if !b.teammates[id] {
				crew = append(crew, id)
			}
		}
		if len(crew) == 0 {
			return game.VoteSkip, nil
		}
		return crew[b.rng.Intn(len(crew))], nil
	}
	if len(alive) == 0 {
		return game.VoteSkip, nil
	}
	return alive[b.rng.Intn(len(alive))], nil
}

func (b *RuleBasedBot) Finish(ctx context.Context, result *game.Result) error {
	return nil
}
