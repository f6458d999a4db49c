package game

import (
	"fmt"
	"sort"
)

// adminRoom hosts the admin table readout.
const adminRoom = "Admin"

// ResolveRound advances the game by exactly one round. It consumes the
// per-player actions gathered by the engine, validates them, and applies
// thirteen ordered effect phases; each phase completes before the next
// begins. Lexicographic player-id order is the only tie-break for
// same-phase conflicts. Calls on a finished game (or outside TASK phase)
// are no-ops.
//
// The only error returned is an InvariantError, which is fatal for the
// game: the engine aborts rather than patch broken state.
func (s *State) ResolveRound(actions map[string]Action) error {
	if s.Phase != PhaseTask || s.Winner != "" {
		return nil
	}

	// Phase 0: reset transient state.
	s.Round++
	s.Events = make(map[string][]string, len(s.Players))
	s.AdminSnapshot = nil
	s.ActionResults = make(map[string]ActionResult, len(s.Players))

	// Phase 1: cooldowns tick toward zero.
	for _, p := range s.Players {
		if p.Role == RoleImpostor && p.KillCooldown > 0 {
			p.KillCooldown--
		}
	}
	if s.SabotageCooldown > 0 {
		s.SabotageCooldown--
	}

	// Phase 2: critical sabotage countdown.
	if sab := s.ActiveSabotage; sab != nil && sab.Critical {
		sab.Countdown--
		if sab.Countdown <= 0 {
			sab.Countdown = 0
			s.appendRoundLog(actions, nil)
			s.endGame(WinnerImpostors, "sabotage_"+sab.Type)
			return s.checkInvariants()
		}
	}

	// Phase 3: validate every action; failures become wait.
	actors := s.actorIDs(actions)
	validated := make(map[string]Action, len(actors))
	for _, id := range actors {
		submitted, ok := actions[id]
		if !ok {
			submitted = Wait()
		}
		result := s.validateAction(id, submitted)
		s.ActionResults[id] = result
		if result.Success {
			validated[id] = submitted
		} else {
			validated[id] = Wait()
		}
	}

	// touched tracks players whose last_action was set by a phase below;
	// everyone else falls back to "idle" in phase 11.
	touched := make(map[string]bool, len(actors))

	// Phase 4: all movement resolves simultaneously.
	s.resolveMovement(actors, validated, touched)

	// Phase 5: kills, in killer-id order, against post-movement positions.
	s.resolveKills(actors, validated)
	if s.checkWin() {
		s.appendRoundLog(actions, validated)
		return s.checkInvariants()
	}

	// Phase 6: task progress and fake tasks.
	s.resolveTasks(actors, validated, touched)
	if s.checkWin() {
		s.appendRoundLog(actions, validated)
		return s.checkInvariants()
	}

	// Phase 7: meeting triggers preempt the rest of the round.
	if s.resolveMeetingTriggers(actors, validated) {
		s.appendRoundLog(actions, validated)
		return s.checkInvariants()
	}

	// Phase 8: a single sabotage may install.
	s.resolveSabotageTriggers(actors, validated)

	// Phase 9: fix ticks, then clear the sabotage if fully repaired.
	s.resolveFixes(actors, validated, touched)

	// Phase 10: admin table snapshot for this round's callers.
	s.resolveAdmin(actors, validated, touched)

	// Phase 11: everyone not given a specific label this round idles.
	for _, id := range actors {
		if !touched[id] {
			s.Players[id].LastAction = "idle"
		}
	}

	// Phase 12: co-location sightings for every sighted living player.
	s.recordSightings()

	// Phase 13: round log and final win check.
	s.appendRoundLog(actions, validated)
	s.checkWin()
	return s.checkInvariants()
}

// actorIDs is the sorted set of players that act this round: the living,
// ghosts when ghost tasks are enabled, and anyone the engine submitted an
// action for (a ghost move is legal even with ghost tasks off).
func (s *State) actorIDs(actions map[string]Action) []string {
	set := make(map[string]bool)
	for _, id := range s.PlayerIDs() {
		p := s.Players[id]
		if p.Alive || (p.IsGhost() && s.Config.GhostTasksEnabled) {
			set[id] = true
		}
	}
	for id := range actions {
		if p, ok := s.Players[id]; ok && !p.Ejected {
			set[id] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// validateAction applies the per-action legality rules. The returned
// result carries the submitted label even on failure.
func (s *State) validateAction(id string, a Action) ActionResult {
	p := s.Players[id]
	if !a.Known() {
		return failedResult(a, "malformed action")
	}
	if !p.Alive && a.Type != ActionMove && a.Type != ActionDoTask && a.Type != ActionWait {
		return failedResult(a, "ghosts can only move or do tasks")
	}

	switch a.Type {
	case ActionWait:
		return successResult(a)

	case ActionMove:
		if a.Target == "" || !s.catalog.IsAdjacent(p.Location, a.Target) {
			return failedResult(a, fmt.Sprintf("%q is not adjacent to %q", a.Target, p.Location))
		}
		return successResult(a)

	case ActionDoTask:
		if p.Role != RoleCrewmate {
			return failedResult(a, "impostors have no real tasks")
		}
		if !p.Alive && !s.Config.GhostTasksEnabled {
			return failedResult(a, "ghost tasks are disabled")
		}
		t := s.findTask(id, a.Target)
		if t == nil {
			return failedResult(a, fmt.Sprintf("no task with id %q", a.Target))
		}
		if t.Completed() {
			return failedResult(a, "task already complete")
		}
		if t.Location != p.Location {
			return failedResult(a, fmt.Sprintf("task %q is in %s", a.Target, t.Location))
		}
		return successResult(a)

	case ActionFakeTask:
		if p.Role != RoleImpostor {
			return failedResult(a, "only impostors fake tasks")
		}
		return successResult(a)

	case ActionKill:
		if p.Role != RoleImpostor {
			return failedResult(a, "only impostors can kill")
		}
		if p.KillCooldown > 0 {
			return failedResult(a, fmt.Sprintf("kill on cooldown for %d more rounds", p.KillCooldown))
		}
		target, ok := s.Players[a.Target]
		if !ok {
			return failedResult(a, fmt.Sprintf("unknown target %q", a.Target))
		}
		if !target.Alive {
			return failedResult(a, "target is already dead")
		}
		if target.Role == RoleImpostor {
			return failedResult(a, "cannot kill a fellow impostor")
		}
		return successResult(a)

	case ActionReport:
		if len(s.BodiesInRoom(p.Location)) == 0 {
			return failedResult(a, "no body here")
		}
		return successResult(a)

	case ActionCallEmergency:
		if p.Location != s.catalog.SpawnRoom {
			return failedResult(a, fmt.Sprintf("the emergency button is in %s", s.catalog.SpawnRoom))
		}
		if p.EmergencyMeetings <= 0 {
			return failedResult(a, "no emergency meetings left")
		}
		if s.ActiveSabotage != nil && s.ActiveSabotage.Critical {
			return failedResult(a, "cannot call a meeting during a critical sabotage")
		}
		return successResult(a)

	case ActionSabotage:
		if p.Role != RoleImpostor {
			return failedResult(a, "only impostors can sabotage")
		}
		if s.ActiveSabotage != nil {
			return failedResult(a, "a sabotage is already active")
		}
		if s.SabotageCooldown > 0 {
			return failedResult(a, fmt.Sprintf("sabotage on cooldown for %d more rounds", s.SabotageCooldown))
		}
		if _, ok := s.catalog.Sabotages[a.Target]; !ok {
			return failedResult(a, fmt.Sprintf("unknown sabotage %q", a.Target))
		}
		return successResult(a)

	case ActionFixSabotage:
		if s.ActiveSabotage == nil {
			return failedResult(a, "no active sabotage")
		}
		if _, ok := s.ActiveSabotage.FixRequired[p.Location]; !ok {
			return failedResult(a, fmt.Sprintf("cannot fix %s from %s", s.ActiveSabotage.Type, p.Location))
		}
		return successResult(a)

	case ActionUseAdmin:
		if p.Location != adminRoom {
			return failedResult(a, fmt.Sprintf("the admin table is in %s", adminRoom))
		}
		return successResult(a)
	}
	return failedResult(a, "malformed action")
}

func (s *State) findTask(id, taskID string) *Task {
	for _, t := range s.Tasks[id] {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

type movement struct {
	id       string
	from, to string
}

// resolveMovement applies all valid moves simultaneously and generates
// departure, arrival, and passing events for sighted living observers.
// Ghost movement is silent.
func (s *State) resolveMovement(actors []string, validated map[string]Action, touched map[string]bool) {
	var moves []movement
	moverSet := make(map[string]bool)
	for _, id := range actors {
		a := validated[id]
		if a.Type != ActionMove {
			continue
		}
		p := s.Players[id]
		moves = append(moves, movement{id: id, from: p.Location, to: a.Target})
		moverSet[id] = true
	}

	for _, m := range moves {
		p := s.Players[m.id]
		p.Location = m.to
		p.LastAction = "moving"
		touched[m.id] = true
		s.recordMovement(m.id, m.to)
	}

	for _, m := range moves {
		if !s.Players[m.id].Alive {
			continue
		}
		for _, other := range s.PlayerIDs() {
			if other == m.id || moverSet[other] {
				continue
			}
			op := s.Players[other]
			if !op.Alive {
				continue
			}
			switch op.Location {
			case m.from:
				s.pushEvent(other, fmt.Sprintf("%s left toward %s", m.id, m.to))
			case m.to:
				s.pushEvent(other, fmt.Sprintf("%s arrived from %s", m.id, m.from))
			}
		}
	}

	for i := 0; i < len(moves); i++ {
		for j := i + 1; j < len(moves); j++ {
			a, b := moves[i], moves[j]
			if a.from != b.to || a.to != b.from {
				continue
			}
			if s.Players[a.id].Alive && s.Players[b.id].Alive {
				s.pushEvent(a.id, fmt.Sprintf("You passed %s moving between %s and %s", b.id, a.from, a.to))
				s.pushEvent(b.id, fmt.Sprintf("You passed %s moving between %s and %s", a.id, b.from, b.to))
			}
		}
	}
}

// resolveKills executes valid kills in killer-id order against the board
// as it stands after movement. A fled or already-dead target downgrades
// the result without resetting the cooldown.
func (s *State) resolveKills(actors []string, validated map[string]Action) {
	for _, id := range actors {
		a := validated[id]
		if a.Type != ActionKill {
			continue
		}
		killer := s.Players[id]
		target := s.Players[a.Target]
		if !target.Alive {
			s.ActionResults[id] = failedResult(a, "target is already dead")
			continue
		}
		if target.Location != killer.Location {
			s.ActionResults[id] = failedResult(a, "target not in room after movement")
			continue
		}

		target.Alive = false
		s.Bodies = append(s.Bodies, Body{PlayerID: target.ID, Location: target.Location})
		killer.KillCooldown = s.Config.KillCooldown

		for _, witness := range s.PlayersInRoom(target.Location) {
			if witness == id || witness == target.ID || s.blinded(witness) {
				continue
			}
			s.pushEvent(witness, fmt.Sprintf("%s was killed!", target.ID))
		}
	}
}

// resolveTasks advances real task progress and labels fake-taskers.
// Completing a visual task in sight of living, non-blinded witnesses
// announces itself; ghost completions stay invisible.
func (s *State) resolveTasks(actors []string, validated map[string]Action, touched map[string]bool) {
	for _, id := range actors {
		a := validated[id]
		switch a.Type {
		case ActionDoTask:
			p := s.Players[id]
			t := s.findTask(id, a.Target)
			if t == nil || t.Completed() {
				continue
			}
			t.Progress++
			p.LastAction = "doing_task"
			touched[id] = true
			if t.Completed() && t.Visual && p.Alive {
				for _, witness := range s.PlayersInRoom(p.Location) {
					if witness == id || s.blinded(witness) {
						continue
					}
					s.pushEvent(witness, fmt.Sprintf("%s completed visual task '%s'", id, t.Name))
				}
			}
		case ActionFakeTask:
			s.Players[id].LastAction = "doing_task"
			touched[id] = true
		}
	}
}

// resolveMeetingTriggers installs at most one meeting. A body report beats
// an emergency call; within a class the lexicographically smallest caller
// wins and every other trigger fails as superseded. Returns true when a
// meeting was installed, which ends the round early.
func (s *State) resolveMeetingTriggers(actors []string, validated map[string]Action) bool {
	var reporters, callers []string
	for _, id := range actors {
		switch validated[id].Type {
		case ActionReport:
			reporters = append(reporters, id)
		case ActionCallEmergency:
			callers = append(callers, id)
		}
	}
	if len(reporters) == 0 && len(callers) == 0 {
		return false
	}

	var winner string
	var trigger MeetingTrigger
	if len(reporters) > 0 {
		winner, trigger = reporters[0], TriggerBodyReport
	} else {
		winner, trigger = callers[0], TriggerEmergency
	}
	for _, id := range append(append([]string(nil), reporters...), callers...) {
		if id == winner {
			continue
		}
		s.ActionResults[id] = failedResult(validated[id], "superseded by another meeting")
	}

	mc := &MeetingContext{Trigger: trigger, Caller: winner}
	if trigger == TriggerBodyReport {
		room := s.Players[winner].Location
		for i, b := range s.Bodies {
			if b.Location == room {
				mc.BodyFound = b.PlayerID
				mc.BodyLocation = b.Location
				s.Bodies = append(s.Bodies[:i], s.Bodies[i+1:]...)
				break
			}
		}
	} else {
		s.Players[winner].EmergencyMeetings--
	}

	s.MeetingContext = mc
	s.Phase = PhaseDiscussion
	s.SpeakerOrder = s.meetingSpeakerOrder(winner)
	s.ChatHistory = s.ChatHistory[:0]
	return true
}

// resolveSabotageTriggers installs the earliest valid sabotage of the
// round; later saboteurs fail as superseded.
func (s *State) resolveSabotageTriggers(actors []string, validated map[string]Action) {
	if s.ActiveSabotage != nil {
		return
	}
	installed := false
	for _, id := range actors {
		a := validated[id]
		if a.Type != ActionSabotage {
			continue
		}
		if installed {
			s.ActionResults[id] = failedResult(a, "superseded by another sabotage")
			continue
		}
		def := s.catalog.Sabotages[a.Target]
		sab := &ActiveSabotage{
			Type:        def.Type,
			Critical:    def.Critical,
			FixProgress: make(map[string]int, len(def.FixLocations)),
			FixRequired: make(map[string]int, len(def.FixLocations)),
		}
		if def.Critical {
			sab.Countdown = s.Config.SabotageCountdown
		}
		for room, ticks := range def.FixLocations {
			sab.FixProgress[room] = 0
			sab.FixRequired[room] = ticks
		}
		s.ActiveSabotage = sab
		installed = true
	}
}

// resolveFixes applies fix ticks and clears the sabotage once every fix
// location has met its requirement, starting the sabotage cooldown.
func (s *State) resolveFixes(actors []string, validated map[string]Action, touched map[string]bool) {
	if s.ActiveSabotage == nil {
		return
	}
	for _, id := range actors {
		a := validated[id]
		if a.Type != ActionFixSabotage {
			continue
		}
		p := s.Players[id]
		required, ok := s.ActiveSabotage.FixRequired[p.Location]
		if !ok {
			continue
		}
		if s.ActiveSabotage.FixProgress[p.Location] < required {
			s.ActiveSabotage.FixProgress[p.Location]++
		}
		p.LastAction = "fixing"
		touched[id] = true
	}
	if s.ActiveSabotage.Fixed() {
		s.ActiveSabotage = nil
		s.SabotageCooldown = s.Config.SabotageCooldown
	}
}

// resolveAdmin computes the per-room living headcount once and hands the
// same snapshot to every caller.
func (s *State) resolveAdmin(actors []string, validated map[string]Action, touched map[string]bool) {
	var callers []string
	for _, id := range actors {
		if validated[id].Type == ActionUseAdmin {
			callers = append(callers, id)
		}
	}
	if len(callers) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, p := range s.Players {
		if p.Alive {
			counts[p.Location]++
		}
	}
	s.AdminSnapshot = make(map[string]map[string]int, len(callers))
	for _, id := range callers {
		s.AdminSnapshot[id] = copyIntMap(counts)
		s.Players[id].LastAction = "admin"
		touched[id] = true
	}
}

// recordSightings appends one memory entry per co-located living pair for
// every sighted observer.
func (s *State) recordSightings() {
	for _, observer := range s.AliveIDs() {
		if s.blinded(observer) {
			continue
		}
		room := s.Players[observer].Location
		for _, other := range s.PlayersInRoom(room) {
			if other == observer {
				continue
			}
			s.recordSighting(observer, Sighting{
				Round:      s.Round,
				PlayerID:   other,
				Location:   room,
				LastAction: s.Players[other].LastAction,
			})
		}
	}
}

// appendRoundLog records the round as submitted. Replaying the logged
// actions against the prior state reproduces this round exactly,
// including each player's action result.
func (s *State) appendRoundLog(actions map[string]Action, validated map[string]Action) {
	entry := RoundLog{
		Round:   s.Round,
		Actions: make(map[string]Action, len(validated)),
		Results: make(map[string]ActionResult, len(s.ActionResults)),
	}
	for id := range validated {
		if a, ok := actions[id]; ok {
			entry.Actions[id] = a
		} else {
			entry.Actions[id] = Wait()
		}
	}
	if validated == nil {
		for id, a := range actions {
			if _, ok := s.Players[id]; ok {
				entry.Actions[id] = a
			}
		}
	}
	for id, r := range s.ActionResults {
		entry.Results[id] = r
	}
	s.GameLog = append(s.GameLog, entry)
}

func (s *State) endGame(winner, cause string) {
	s.Winner = winner
	s.WinCause = cause
	s.Phase = PhaseGameOver
}

// checkWin evaluates the ordered win conditions and freezes the game when
// one holds. Reports whether the game is over.
func (s *State) checkWin() bool {
	if s.Winner != "" {
		return true
	}
	imps, crew := s.livingCounts()
	switch {
	case imps == 0:
		s.endGame(WinnerCrewmates, CauseAllImpostorsEliminated)
	case imps >= crew:
		s.endGame(WinnerImpostors, CauseImpostorsMajority)
	case s.ActiveSabotage != nil && s.ActiveSabotage.Critical && s.ActiveSabotage.Countdown <= 0:
		s.endGame(WinnerImpostors, "sabotage_"+s.ActiveSabotage.Type)
	case s.GlobalTaskProgress() >= 1.0:
		s.endGame(WinnerCrewmates, CauseAllTasksCompleted)
	case s.Round >= s.Config.MaxTotalRounds:
		s.endGame(WinnerCrewmates, CauseTimeout)
	default:
		return false
	}
	return true
}

// checkInvariants verifies the structural invariants that must hold after
// every resolver call. A violation is fatal for the game.
func (s *State) checkInvariants() error {
	for id, p := range s.Players {
		if !s.catalog.HasRoom(p.Location) {
			return invariantf(s.Round, "player %s is in unknown room %q", id, p.Location)
		}
		if p.Ejected && p.Alive {
			return invariantf(s.Round, "player %s is both alive and ejected", id)
		}
		if p.KillCooldown < 0 {
			return invariantf(s.Round, "player %s has negative kill cooldown", id)
		}
	}
	if s.SabotageCooldown > 0 && s.ActiveSabotage != nil {
		return invariantf(s.Round, "sabotage cooldown %d with a sabotage still active", s.SabotageCooldown)
	}
	if sab := s.ActiveSabotage; sab != nil {
		for room, progress := range sab.FixProgress {
			if progress > sab.FixRequired[room] {
				return invariantf(s.Round, "fix progress %d exceeds requirement in %s", progress, room)
			}
		}
	}
	bodiesPer := make(map[string]int)
	for _, b := range s.Bodies {
		bodiesPer[b.PlayerID]++
		owner, ok := s.Players[b.PlayerID]
		if !ok {
			return invariantf(s.Round, "body of unknown player %s", b.PlayerID)
		}
		if owner.Alive || owner.Ejected {
			return invariantf(s.Round, "body of %s who is not killed (alive=%v ejected=%v)", b.PlayerID, owner.Alive, owner.Ejected)
		}
	}
	for id, n := range bodiesPer {
		if n > 1 {
			return invariantf(s.Round, "%d bodies for player %s", n, id)
		}
	}
	for id, tasks := range s.Tasks {
		for _, t := range tasks {
			if t.Progress < 0 || t.Progress > t.Required {
				return invariantf(s.Round, "task %s of %s has progress %d/%d", t.ID, id, t.Progress, t.Required)
			}
		}
	}
	if s.Phase == PhaseDiscussion && s.MeetingContext == nil {
		return invariantf(s.Round, "DISCUSSION phase without meeting context")
	}
	if s.Phase == PhaseGameOver && s.Winner == "" {
		return invariantf(s.Round, "GAME_OVER phase without a winner")
	}
	if progress := s.GlobalTaskProgress(); progress < 0 || progress > 1 {
		return invariantf(s.Round, "global task progress %f outside [0,1]", progress)
	}
	return nil
}
