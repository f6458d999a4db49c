package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives engine lifecycle notifications. The monitoring layer
// implements it; a game run without monitoring gets the no-op recorder.
// Implementations must be safe for concurrent use: action and vote
// collection fan out across agents, and a tournament runs games in
// parallel.
type Recorder interface {
	GameStarted()
	RoundResolved()
	AgentCalled(hook string, elapsed time.Duration, err error)
	KillCommitted()
	MeetingHeld(trigger string, ejected bool)
	GameFinished(winner, cause string, rounds int, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) GameStarted()   {}
func (noopRecorder) RoundResolved() {}
func (noopRecorder) AgentCalled(string, time.Duration, error) {
}
func (noopRecorder) KillCommitted() {}
func (noopRecorder) MeetingHeld(string, bool) {
}
func (noopRecorder) GameFinished(string, string, int, time.Duration) {
}

// Seat binds a player id to the agent that plays it. ForcedRole pins the
// deal for that seat; either every seat is forced or none are.
type Seat struct {
	PlayerID   string
	Team       string
	Agent      Agent
	ForcedRole Role
}

// Options carries the optional engine collaborators. Zero values select
// a random seed, a generated game id, and no-op logging, events, and
// metrics.
type Options struct {
	GameID   string
	Seed     int64
	Logger   *zap.Logger
	EventLog *EventLog
	Recorder Recorder
	Catalog  *Catalog
}

// Engine drives one game from deal to verdict. It owns the authoritative
// State and is the only writer to it; agents see the world exclusively
// through observations. All randomness flows from the seeded RNG, so a
// game is fully reproducible from (seed, agent behavior).
type Engine struct {
	gameID  string
	seed    int64
	cfg     Config
	catalog *Catalog
	seats   []Seat
	agents  map[string]Agent

	state *State
	rng   *rand.Rand

	logger   *zap.Logger
	eventLog *EventLog
	recorder Recorder
}

// NewEngine validates the configuration and seats, deals roles and tasks,
// and returns an engine ready to Run.
func NewEngine(cfg Config, seats []Seat, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if len(seats) != cfg.NumPlayers {
		return nil, fmt.Errorf("got %d seats for a %d player game", len(seats), cfg.NumPlayers)
	}

	sorted := append([]Seat(nil), seats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PlayerID < sorted[j].PlayerID })

	agents := make(map[string]Agent, len(sorted))
	forced := 0
	forcedImpostors := 0
	for _, seat := range sorted {
		if seat.PlayerID == "" {
			return nil, fmt.Errorf("seat with empty player id")
		}
		if seat.Agent == nil {
			return nil, fmt.Errorf("seat %s has no agent", seat.PlayerID)
		}
		if _, dup := agents[seat.PlayerID]; dup {
			return nil, fmt.Errorf("duplicate seat for player %s", seat.PlayerID)
		}
		agents[seat.PlayerID] = seat.Agent
		switch seat.ForcedRole {
		case "":
		case RoleImpostor:
			forced++
			forcedImpostors++
		case RoleCrewmate:
			forced++
		default:
			return nil, fmt.Errorf("seat %s has unknown role %q", seat.PlayerID, seat.ForcedRole)
		}
	}
	if forced != 0 && forced != len(sorted) {
		return nil, fmt.Errorf("roles forced for %d of %d seats; force all or none", forced, len(sorted))
	}
	if forced != 0 && forcedImpostors != cfg.NumImpostors {
		return nil, fmt.Errorf("forced %d impostors, config wants %d", forcedImpostors, cfg.NumImpostors)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gameID := opts.GameID
	if gameID == "" {
		gameID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	e := &Engine{
		gameID:   gameID,
		seed:     seed,
		cfg:      cfg,
		catalog:  catalog,
		seats:    sorted,
		agents:   agents,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger.With(zap.String("game_id", gameID)),
		eventLog: opts.EventLog,
		recorder: recorder,
	}
	e.deal(forced != 0)
	return e, nil
}

// GameID returns the engine's game identifier.
func (e *Engine) GameID() string { return e.gameID }

// Seed returns the RNG seed the game was dealt from.
func (e *Engine) Seed() int64 { return e.seed }

// State exposes the authoritative state. Callers must not mutate it and
// must not read it while Run is in flight.
func (e *Engine) State() *State { return e.state }

// deal builds the initial state: everyone at spawn, roles from the seats
// or the RNG, and a task list per player. Impostor task lists are cover
// stories and never count toward crew progress.
func (e *Engine) deal(forcedRoles bool) {
	e.state = NewState(e.cfg, e.catalog)

	ids := make([]string, 0, len(e.seats))
	for _, seat := range e.seats {
		ids = append(ids, seat.PlayerID)
	}

	roles := make(map[string]Role, len(ids))
	if forcedRoles {
		for _, seat := range e.seats {
			roles[seat.PlayerID] = seat.ForcedRole
		}
	} else {
		for _, id := range ids {
			roles[id] = RoleCrewmate
		}
		for _, i := range e.rng.Perm(len(ids))[:e.cfg.NumImpostors] {
			roles[ids[i]] = RoleImpostor
		}
	}

	for _, id := range ids {
		e.state.Players[id] = &Player{
			ID:                id,
			Role:              roles[id],
			Alive:             true,
			Location:          e.catalog.SpawnRoom,
			EmergencyMeetings: e.cfg.EmergencyMeetingsPerPlayer,
			LastAction:        "wait",
		}
		e.state.Tasks[id] = e.dealTasks()
		e.state.recordMovement(id, e.catalog.SpawnRoom)
	}
}

// dealTasks draws one player's task list from the catalog pool: the
// configured number of visual tasks first, then regular ones, both
// without replacement.
func (e *Engine) dealTasks() []*Task {
	var visual, plain []TaskDef
	for _, def := range e.catalog.TaskPool {
		if def.Visual {
			visual = append(visual, def)
		} else {
			plain = append(plain, def)
		}
	}

	total := e.cfg.TasksPerCrewmate
	visualCount := e.cfg.VisualTasksPerCrewmate
	if visualCount > total {
		visualCount = total
	}

	chosen := append(e.drawTasks(visual, visualCount), e.drawTasks(plain, total-visualCount)...)
	tasks := make([]*Task, len(chosen))
	for i, def := range chosen {
		tasks[i] = &Task{
			ID:       fmt.Sprintf("task_%d", i+1),
			Name:     def.Name,
			Location: def.Location,
			Required: def.Required,
			Visual:   def.Visual,
		}
	}
	return tasks
}

func (e *Engine) drawTasks(pool []TaskDef, n int) []TaskDef {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	out := make([]TaskDef, 0, n)
	for _, i := range e.rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

// Run plays the game to completion and returns its result. The context
// bounds the whole game; agent calls additionally get the per-decision
// timeout from the config. Errors are context cancellation, invariant
// violations, and ErrGameOver on a second call.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.state.Winner != "" {
		return nil, ErrGameOver
	}
	start := time.Now()
	e.logger.Info("game starting",
		zap.Int64("seed", e.seed),
		zap.Int("players", e.cfg.NumPlayers),
		zap.Int("impostors", e.cfg.NumImpostors))
	e.recorder.GameStarted()
	e.emit(EventTypeGameStart, GameStartPayload{
		GameID:       e.gameID,
		Seed:         e.seed,
		Players:      e.state.PlayerIDs(),
		NumImpostors: e.cfg.NumImpostors,
	})

	e.initAgents(ctx)

	for e.state.Winner == "" {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("game abandoned", zap.Error(err))
			return nil, err
		}
		switch e.state.Phase {
		case PhaseTask:
			if err := e.playRound(ctx); err != nil {
				return nil, err
			}
		case PhaseDiscussion:
			e.runDiscussion(ctx)
			e.state.BeginVoting()
		case PhaseVoting:
			if err := e.runVoting(ctx); err != nil {
				return nil, err
			}
		}
	}

	elapsed := time.Since(start)
	result := e.buildResult(start, elapsed)
	e.emit(EventTypeGameOver, GameOverPayload{
		Winner:     result.Winner,
		Cause:      result.Cause,
		FinalRound: result.FinalRound,
	})
	e.recorder.GameFinished(result.Winner, result.Cause, result.FinalRound, elapsed)
	e.debriefAgents(ctx, result)
	e.logger.Info("game over",
		zap.String("winner", result.Winner),
		zap.String("cause", result.Cause),
		zap.Int("rounds", result.FinalRound),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// debriefAgents hands every agent the final result. Failures are logged
// and ignored; the verdict is already in.
func (e *Engine) debriefAgents(ctx context.Context, result *Result) {
	for _, seat := range e.seats {
		agent := seat.Agent
		began := time.Now()
		_, err := callWithDeadline(ctx, e.cfg.AgentTimeout(), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, agent.Finish(ctx, result)
		})
		e.recorder.AgentCalled("finish", time.Since(began), err)
		if err != nil {
			e.logger.Warn("agent debrief failed", zap.String("player", seat.PlayerID), zap.Error(err))
		}
	}
}

// initAgents briefs every agent. A failed briefing is logged and the
// agent plays on; its later failures degrade to waits and skips.
func (e *Engine) initAgents(ctx context.Context) {
	for _, seat := range e.seats {
		startCfg := e.startConfigFor(seat.PlayerID)
		agent := seat.Agent
		began := time.Now()
		_, err := callWithDeadline(ctx, e.cfg.AgentTimeout(), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, agent.Init(ctx, startCfg)
		})
		e.recorder.AgentCalled("init", time.Since(began), err)
		if err != nil {
			e.logger.Warn("agent init failed", zap.String("player", seat.PlayerID), zap.Error(err))
		}
	}
}

// startConfigFor assembles one player's pre-game briefing.
func (e *Engine) startConfigFor(id string) GameStartConfig {
	p := e.state.Players[id]

	var teammates []string
	if p.Role == RoleImpostor {
		for _, other := range e.state.PlayerIDs() {
			if other != id && e.state.Players[other].Role == RoleImpostor {
				teammates = append(teammates, other)
			}
		}
	}

	tasks := make([]Task, 0, len(e.state.Tasks[id]))
	for _, t := range e.state.Tasks[id] {
		tasks = append(tasks, *t)
	}

	adjacency := make(map[string][]string, len(e.catalog.Adjacency))
	for room := range e.catalog.Adjacency {
		adjacency[room] = e.catalog.AdjacentRooms(room)
	}

	return GameStartConfig{
		YourID:            id,
		YourRole:          p.Role,
		ImpostorTeammates: teammates,
		Players:           e.state.PlayerIDs(),
		Tasks:             tasks,
		MapAdjacency:      adjacency,
		SpawnRoom:         e.catalog.SpawnRoom,
		Config:            e.cfg,
	}
}

// playRound gathers one action per actor and resolves them.
func (e *Engine) playRound(ctx context.Context) error {
	actions := e.collectActions(ctx)

	sabotageBefore := ""
	if sab := e.state.ActiveSabotage; sab != nil {
		sabotageBefore = sab.Type
	}

	if err := e.state.ResolveRound(actions); err != nil {
		e.logger.Error("round resolution failed", zap.Int("round", e.state.Round), zap.Error(err))
		return err
	}
	e.recorder.RoundResolved()
	e.emitRoundEvents(sabotageBefore)
	return nil
}

// collectActions queries every actor concurrently. Observations are
// built up front, single-threaded, so agent goroutines never touch the
// state. Errors and timeouts degrade to wait.
func (e *Engine) collectActions(ctx context.Context) map[string]Action {
	type query struct {
		id    string
		agent Agent
		obs   *Observation
	}
	var queries []query
	for _, id := range e.state.PlayerIDs() {
		p := e.state.Players[id]
		if !p.Alive && !(p.IsGhost() && e.cfg.GhostTasksEnabled) {
			continue
		}
		queries = append(queries, query{id: id, agent: e.agents[id], obs: e.state.ObservationFor(id, PhaseTask)})
	}

	var (
		mu      sync.Mutex
		actions = make(map[string]Action, len(queries))
	)
	var g errgroup.Group
	for _, q := range queries {
		g.Go(func() error {
			began := time.Now()
			action, err := callWithDeadline(ctx, e.cfg.AgentTimeout(), func(ctx context.Context) (Action, error) {
				return q.agent.DecideAction(ctx, q.obs)
			})
			e.recorder.AgentCalled("decide_action", time.Since(began), err)
			if err != nil {
				e.logger.Warn("action decision failed",
					zap.String("player", q.id),
					zap.Int("round", e.state.Round+1),
					zap.Error(err))
				action = Wait()
			}
			mu.Lock()
			actions[q.id] = action
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return actions
}

// runDiscussion walks the configured rotations in speaker order. Turns
// are sequential so each speaker sees the transcript so far. Errors,
// timeouts, and empty strings all mean silence.
func (e *Engine) runDiscussion(ctx context.Context) {
	for rotation := 1; rotation <= e.cfg.DiscussionRotations; rotation++ {
		for _, speaker := range e.state.SpeakerOrder {
			obs := e.state.ObservationFor(speaker, PhaseDiscussion)
			agent := e.agents[speaker]
			began := time.Now()
			text, err := callWithDeadline(ctx, e.cfg.AgentTimeout(), func(ctx context.Context) (string, error) {
				return agent.Discuss(ctx, obs)
			})
			e.recorder.AgentCalled("discuss", time.Since(began), err)
			if err != nil {
				e.logger.Warn("discussion turn failed",
					zap.String("player", speaker),
					zap.Int("rotation", rotation),
					zap.Error(err))
				continue
			}
			e.state.AppendChat(speaker, rotation, text)
		}
	}
}

// runVoting collects simultaneous secret ballots and concludes the
// meeting. Errors and timeouts degrade to skip.
func (e *Engine) runVoting(ctx context.Context) error {
	type ballotQuery struct {
		id    string
		agent Agent
		obs   *Observation
	}
	var queries []ballotQuery
	for _, id := range e.state.AliveIDs() {
		queries = append(queries, ballotQuery{id: id, agent: e.agents[id], obs: e.state.ObservationFor(id, PhaseVoting)})
	}

	var (
		mu    sync.Mutex
		votes = make(map[string]string, len(queries))
	)
	var g errgroup.Group
	for _, q := range queries {
		g.Go(func() error {
			began := time.Now()
			vote, err := callWithDeadline(ctx, e.cfg.AgentTimeout(), func(ctx context.Context) (string, error) {
				return q.agent.Vote(ctx, q.obs)
			})
			e.recorder.AgentCalled("vote", time.Since(began), err)
			if err != nil {
				e.logger.Warn("vote failed", zap.String("player", q.id), zap.Error(err))
				vote = VoteSkip
			}
			mu.Lock()
			votes[q.id] = vote
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if err := e.state.ConcludeMeeting(votes); err != nil {
		e.logger.Error("meeting conclusion failed", zap.Int("round", e.state.Round), zap.Error(err))
		return err
	}
	if n := len(e.state.MeetingHistory); n > 0 {
		last := e.state.MeetingHistory[n-1]
		e.recorder.MeetingHeld(string(last.Trigger), last.Ejected != "")
		if last.Ejected != "" {
			e.emit(EventTypeEjection, EjectionPayload{PlayerID: last.Ejected, RoleRevealed: string(last.RoleRevealed)})
		}
	}
	return nil
}

// emitRoundEvents publishes what the just-resolved round did: kills,
// sabotage transitions, a meeting call, and the round summary.
func (e *Engine) emitRoundEvents(sabotageBefore string) {
	ids := make([]string, 0, len(e.state.ActionResults))
	for id := range e.state.ActionResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := e.state.ActionResults[id]
		if r.Action != ActionKill || !r.Success {
			continue
		}
		e.recorder.KillCommitted()
		e.emit(EventTypeKill, KillPayload{
			KillerID: id,
			VictimID: r.Target,
			Location: e.state.Players[r.Target].Location,
		})
	}

	if sab := e.state.ActiveSabotage; sab != nil && sabotageBefore == "" {
		e.emit(EventTypeSabotageStarted, SabotagePayload{
			SabotageType: sab.Type,
			Critical:     sab.Critical,
			Countdown:    sab.Countdown,
		})
	} else if sab == nil && sabotageBefore != "" && e.state.SabotageCooldown == e.cfg.SabotageCooldown {
		e.emit(EventTypeSabotageFixed, SabotagePayload{SabotageType: sabotageBefore})
	}

	if e.state.Phase == PhaseDiscussion && e.state.MeetingContext != nil {
		mc := e.state.MeetingContext
		e.emit(EventTypeMeetingCalled, MeetingPayload{
			Trigger:   mc.Trigger,
			Caller:    mc.Caller,
			BodyFound: mc.BodyFound,
		})
	}

	imps, crew := e.state.livingCounts()
	e.emit(EventTypeRoundResolved, RoundResolvedPayload{
		Round:        e.state.Round,
		Phase:        e.state.Phase,
		AliveCrew:    crew,
		AliveImps:    imps,
		TaskProgress: e.state.GlobalTaskProgress(),
	})
}

func (e *Engine) emit(eventType EventType, payload interface{}) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.EmitSimple(eventType, e.state.Round, e.gameID, payload)
}

// buildResult snapshots the finished game into its portable summary.
func (e *Engine) buildResult(start time.Time, elapsed time.Duration) *Result {
	roles := make(map[string]Role, len(e.state.Players))
	for id, p := range e.state.Players {
		roles[id] = p.Role
	}

	var teams map[string]string
	for _, seat := range e.seats {
		if seat.Team != "" {
			teams = make(map[string]string, len(e.seats))
			break
		}
	}
	if teams != nil {
		for _, seat := range e.seats {
			teams[seat.PlayerID] = seat.Team
		}
	}

	return &Result{
		GameID:          e.gameID,
		Seed:            e.seed,
		Winner:          e.state.Winner,
		Cause:           e.state.WinCause,
		FinalRound:      e.state.Round,
		AllRoles:        roles,
		TeamMapping:     teams,
		MovementHistory: e.state.MovementHistory,
		SightingHistory: e.state.SightingHistory,
		MeetingHistory:  e.state.MeetingHistory,
		GameLog:         e.state.GameLog,
		StartedAt:       start.UTC(),
		DurationMS:      elapsed.Milliseconds(),
	}
}

// callWithDeadline runs fn under the per-decision timeout in its own
// goroutine, so an agent that ignores its context cannot stall the game.
// The goroutine of an overrun call finishes in the background; its result
// is discarded.
func callWithDeadline[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		value, err := fn(ctx)
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
