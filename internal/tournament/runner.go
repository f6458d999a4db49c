// Package tournament schedules balanced multi-game matchups between
// agent teams, runs them through the game engine, and keeps Elo ratings
// and standings.
package tournament

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skeld/internal/agent"
	"skeld/internal/game"
)

// Observer receives tournament progress. The monitor server implements
// it; a nil observer means a headless run.
type Observer interface {
	GameCompleted(index int, result *game.Result, standings []Standing)
}

// Options configure a tournament.
type Options struct {
	// Teams maps team name -> agent spec ("random", "rulebased",
	// "gemini[:model]").
	Teams map[string]string

	Config       game.Config
	Catalog      *game.Catalog
	GamesPerTeam int
	Parallel     int
	Seed         int64
	OutputDir    string
	APIKey       string

	Logger   *zap.Logger
	EventLog *game.EventLog
	Recorder game.Recorder
	Observer Observer
}

// Runner plays a full tournament: schedule, games, ratings, artifacts.
type Runner struct {
	opts  Options
	teams []string
	agg   *Aggregator
	rng   *rand.Rand
}

// gamePlan pins everything random about one scheduled game before launch,
// so the schedule is reproducible regardless of completion order.
type gamePlan struct {
	lobby     Lobby
	gameSeed  int64
	seatSeeds []int64
}

// NewRunner validates the team list and agent specs up front, so a typo
// fails the tournament before any game starts.
func NewRunner(opts Options) (*Runner, error) {
	if len(opts.Teams) == 0 {
		return nil, &game.ConfigError{Field: "teams", Msg: "tournament needs at least one team"}
	}
	if opts.GamesPerTeam <= 0 {
		return nil, &game.ConfigError{Field: "games", Msg: fmt.Sprintf("games per team must be positive, got %d", opts.GamesPerTeam)}
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	teams := make([]string, 0, len(opts.Teams))
	for team := range opts.Teams {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	for _, team := range teams {
		if team == FallbackTeam {
			return nil, &game.ConfigError{Field: "teams", Msg: fmt.Sprintf("team name %q is reserved", FallbackTeam)}
		}
		spec := opts.Teams[team]
		if !agent.Known(spec) {
			return nil, &game.ConfigError{Field: "teams", Msg: fmt.Sprintf("team %q has unknown agent spec %q", team, spec)}
		}
		if strings.HasPrefix(spec, agent.SpecGemini) && opts.APIKey == "" {
			return nil, &game.ConfigError{Field: "teams", Msg: fmt.Sprintf("team %q needs GEMINI_API_KEY", team)}
		}
	}

	return &Runner{
		opts:  opts,
		teams: teams,
		agg:   NewAggregator(teams),
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Standings returns the current table; safe to call while games run.
func (r *Runner) Standings() []Standing {
	return r.agg.Standings()
}

// Run plays the full schedule and returns the final standings. A game
// error (engine invariant, agent construction) cancels the remaining
// games and fails the run.
func (r *Runner) Run(ctx context.Context) ([]Standing, error) {
	lobbies := Schedule(r.teams, r.opts.Config, r.opts.GamesPerTeam, r.rng)
	if r.opts.OutputDir != "" {
		if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	r.opts.Logger.Info("tournament starting",
		zap.Int("teams", len(r.teams)),
		zap.Int("games", len(lobbies)),
		zap.Int("parallel", r.opts.Parallel),
		zap.Int64("seed", r.opts.Seed))

	// Draw every seed in schedule order before launching anything.
	plans := make([]gamePlan, len(lobbies))
	for i, lobby := range lobbies {
		seatSeeds := make([]int64, len(lobby.Seats))
		for j := range seatSeeds {
			seatSeeds[j] = r.rng.Int63()
		}
		plans[i] = gamePlan{lobby: lobby, gameSeed: r.rng.Int63(), seatSeeds: seatSeeds}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallel)
	for i := range plans {
		plan := plans[i]
		g.Go(func() error {
			result, err := r.playGame(ctx, plan)
			if err != nil {
				return fmt.Errorf("game %d: %w", plan.lobby.Index, err)
			}
			r.agg.Record(result)
			if r.opts.OutputDir != "" {
				path := filepath.Join(r.opts.OutputDir, GameArtifactName(plan.lobby.Index))
				if err := WriteJSON(path, result); err != nil {
					return err
				}
			}
			r.opts.Logger.Info("game finished",
				zap.Int("game", plan.lobby.Index+1),
				zap.Int("total", len(plans)),
				zap.String("winner", result.Winner),
				zap.String("cause", result.Cause),
				zap.Int("rounds", result.FinalRound))
			if r.opts.Observer != nil {
				r.opts.Observer.GameCompleted(plan.lobby.Index, result, r.agg.Standings())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	standings := r.agg.Standings()
	if r.opts.OutputDir != "" {
		path := filepath.Join(r.opts.OutputDir, StandingsArtifactName)
		if err := WriteJSON(path, standings); err != nil {
			return nil, err
		}
	}
	return standings, nil
}

// playGame builds fresh agents for one lobby and runs the engine.
func (r *Runner) playGame(ctx context.Context, plan gamePlan) (*game.Result, error) {
	seats := make([]game.Seat, 0, len(plan.lobby.Seats))
	for i, sp := range plan.lobby.Seats {
		spec := agent.SpecRuleBased
		if sp.Team != FallbackTeam {
			spec = r.opts.Teams[sp.Team]
		}
		a, err := agent.New(ctx, spec, agent.Options{
			Seed:   plan.seatSeeds[i],
			Seat:   i,
			APIKey: r.opts.APIKey,
			Logger: r.opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build %s agent for %s: %w", spec, sp.PlayerID, err)
		}
		seats = append(seats, game.Seat{
			PlayerID:   sp.PlayerID,
			Team:       sp.Team,
			Agent:      a,
			ForcedRole: sp.Role,
		})
	}

	engine, err := game.NewEngine(r.opts.Config, seats, game.Options{
		GameID:   uuid.NewString(),
		Seed:     plan.gameSeed,
		Logger:   r.opts.Logger,
		EventLog: r.opts.EventLog,
		Recorder: r.opts.Recorder,
		Catalog:  r.opts.Catalog,
	})
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx)
}
