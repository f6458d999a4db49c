package agent

import (
	"context"
	"fmt"
	"math/rand"

	"skeld/internal/game"
)

// RandomBot plays almost at random: it reports bodies when it can, rolls
// dice for everything else, and chats in canned one-liners. Useful as a
// noise baseline and as a cheap lobby filler.
type RandomBot struct {
	rng  *rand.Rand
	id   string
	role game.Role
}

// NewRandomBot builds a RandomBot with its own seeded generator, so a
// lobby of them replays identically for a given set of seeds.
func NewRandomBot(seed int64) *RandomBot {
	return &RandomBot{rng: rand.New(rand.NewSource(seed))}
}

func (b *RandomBot) Init(ctx context.Context, start game.GameStartConfig) error {
	b.id = start.YourID
	b.role = start.YourRole
	return nil
}

func (b *RandomBot) DecideAction(ctx context.Context, obs *game.Observation) (game.Action, error) {
	if obs == nil {
		return game.Wait(), nil
	}
	if avail := obs.AvailableActions; avail != nil && avail.CanReport {
		return game.Action{Type: game.ActionReport}, nil
	}
	if b.role == game.RoleCrewmate && obs.Tasks != nil {
		for _, t := range obs.Tasks.YourTasks {
			if t.Location == obs.Identity.YourLocation && t.Progress < t.Required && b.rng.Float64() < 0.7 {
				return game.Action{Type: game.ActionDoTask, Target: t.IDToUse}, nil
			}
		}
	}
	if b.role == game.RoleImpostor {
		avail, room := obs.AvailableActions, obs.RoomObservations
		if avail != nil && avail.CanKill && room != nil && len(room.PlayersPresent) > 0 && b.rng.Float64() < 0.3 {
			victim := room.PlayersPresent[b.rng.Intn(len(room.PlayersPresent))]
			return game.Action{Type: game.ActionKill, Target: victim.ID}, nil
		}
	}
	if room := obs.RoomObservations; room != nil && len(room.AdjacentRooms) > 0 && b.rng.Float64() < 0.8 {
		return game.Action{Type: game.ActionMove, Target: room.AdjacentRooms[b.rng.Intn(len(room.AdjacentRooms))]}, nil
	}
	return game.Wait(), nil
}

func (b *RandomBot) Discuss(ctx context.Context, obs *game.Observation) (string, error) {
	lines := []string{
		"I was doing tasks.",
		"That's suspicious.",
		"I think we should skip.",
		"I saw nothing.",
		fmt.Sprintf("I was in %s.", obs.Identity.YourLocation),
		"Let's not vote randomly.",
	}
	return lines[b.rng.Intn(len(lines))], nil
}

func (b *RandomBot) Vote(ctx context.Context, obs *game.Observation) (string, error) {
	if b.rng.Float64() < 0.4 {
		return game.VoteSkip, nil
	}
	var candidates []string
	if obs.Players != nil {
		for _, id := range obs.Players.Alive {
			if id != b.id {
				candidates = append(candidates, id)
			}
		}
	}
	if len(candidates) == 0 {
		return game.VoteSkip, nil
	}
	return candidates[b.rng.Intn(len(candidates))], nil
}

func (b *RandomBot) Finish(ctx context.Context, result *game.Result) error {
	return nil
}
