package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestTaskObservationContents checks the full TASK view of a living crewmate
func TestTaskObservationContents(t *testing.T) {
	s := newBoard(t, 5, 1)
	s.Round = 3
	s.Players["player_1"].LastAction = "do_task"
	s.Players["player_2"].Location = "MedBay"
	killPlayer(s, "player_3")
	s.Bodies = append(s.Bodies, Body{PlayerID: "player_3", Location: "Cafeteria"})
	giveTask(s, "player_0", "task_0", "Fix Wiring", "Electrical", 2, 1, false)
	s.Events["player_0"] = []string{"player_2 left toward MedBay"}
	s.ActionResults["player_0"] = ActionResult{Action: ActionMove, Target: "Cafeteria", Success: true}

	obs := s.ObservationFor("player_0", PhaseTask)
	if obs == nil {
		t.Fatal("Expected an observation")
	}
	if obs.GameMetadata.RoundNumber != 3 || obs.GameMetadata.Phase != PhaseTask {
		t.Errorf("Metadata mismatch: %+v", obs.GameMetadata)
	}
	want := Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Cafeteria"}
	if obs.Identity != want {
		t.Errorf("Identity mismatch: %+v", obs.Identity)
	}

	room := obs.RoomObservations
	if room == nil {
		t.Fatal("Expected room observations")
	}
	wantPresent := []RoomPlayer{
		{ID: "player_1", LastAction: "do_task"},
		{ID: "player_4", LastAction: "wait"},
	}
	if diff := cmp.Diff(wantPresent, room.PlayersPresent); diff != "" {
		t.Errorf("Players present mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"player_3"}, room.BodiesPresent); diff != "" {
		t.Errorf("Bodies present mismatch:\n%s", diff)
	}
	wantAdj := []string{"Weapons", "MedBay", "Upper Engine", "Admin", "Storage"}
	if diff := cmp.Diff(wantAdj, room.AdjacentRooms); diff != "" {
		t.Errorf("Adjacency mismatch:\n%s", diff)
	}

	if diff := cmp.Diff([]string{"player_2 left toward MedBay"}, obs.EventsLastRound); diff != "" {
		t.Errorf("Events mismatch:\n%s", diff)
	}

	tasks := obs.Tasks
	if tasks == nil {
		t.Fatal("Expected a tasks section")
	}
	wantTasks := []TaskView{{IDToUse: "task_0", Name: "Fix Wiring", Location: "Electrical", Progress: 1, Required: 2}}
	if diff := cmp.Diff(wantTasks, tasks.YourTasks); diff != "" {
		t.Errorf("Task views mismatch:\n%s", diff)
	}
	if tasks.Fake || tasks.CommsDisabled {
		t.Errorf("Crew tasks must be real and visible: %+v", tasks)
	}
	if tasks.GlobalTaskProgress != 0.5 {
		t.Errorf("Expected progress 0.5, got %v", tasks.GlobalTaskProgress)
	}

	if obs.ImpostorInfo != nil {
		t.Error("Crewmates must not see impostor info")
	}
	if obs.AdminTable != nil {
		t.Error("No admin snapshot was taken this round")
	}
	if obs.PreviousResult == nil || !obs.PreviousResult.Success || obs.PreviousResult.Action != ActionMove {
		t.Errorf("Previous result mismatch: %+v", obs.PreviousResult)
	}
	acts := obs.AvailableActions
	if acts == nil || !acts.CanReport || !acts.CanEmergency {
		t.Errorf("Expected report and emergency available: %+v", acts)
	}
	if acts.CanKill || acts.CanSabotage || acts.CanFix {
		t.Errorf("Crewmate got impostor flags: %+v", acts)
	}
}

// TestImpostorObservation checks the impostor-only additions to the view
func TestImpostorObservation(t *testing.T) {
	s := newBoard(t, 7, 2)
	giveTask(s, "player_5", "task_0", "Prime Shields", "Shields", 2, 0, false)
	s.Players["player_5"].KillCooldown = 2

	obs := s.ObservationFor("player_5", PhaseTask)
	info := obs.ImpostorInfo
	if info == nil {
		t.Fatal("Expected impostor info")
	}
	if diff := cmp.Diff([]string{"player_6"}, info.Teammates); diff != "" {
		t.Errorf("Teammates mismatch:\n%s", diff)
	}
	if info.KillCooldown != 2 {
		t.Errorf("Expected kill cooldown 2, got %d", info.KillCooldown)
	}
	if !obs.Tasks.Fake {
		t.Error("Impostor task lists must be marked fake")
	}
	if obs.AvailableActions.CanKill {
		t.Error("Kill must be unavailable on cooldown")
	}
	if !obs.AvailableActions.CanSabotage {
		t.Error("Expected sabotage available with no cooldown")
	}

	s.Players["player_5"].KillCooldown = 0
	s.SabotageCooldown = 1
	obs = s.ObservationFor("player_5", PhaseTask)
	if !obs.AvailableActions.CanKill {
		t.Error("Expected kill available off cooldown")
	}
	if obs.AvailableActions.CanSabotage {
		t.Error("Sabotage must be unavailable on cooldown")
	}
}

// TestLightsBlindCrewOnly empties the room view for crewmates, not impostors
func TestLightsBlindCrewOnly(t *testing.T) {
	s := newBoard(t, 5, 1)
	killPlayer(s, "player_3")
	s.Bodies = append(s.Bodies, Body{PlayerID: "player_3", Location: "Cafeteria"})
	s.ActiveSabotage = &ActiveSabotage{
		Type:        "lights",
		FixProgress: map[string]int{"Electrical": 0},
		FixRequired: map[string]int{"Electrical": 3},
	}

	crew := s.ObservationFor("player_0", PhaseTask)
	if len(crew.RoomObservations.PlayersPresent) != 0 || len(crew.RoomObservations.BodiesPresent) != 0 {
		t.Errorf("Blinded crew must see an empty room, got %+v", crew.RoomObservations)
	}
	if len(crew.RoomObservations.AdjacentRooms) == 0 {
		t.Error("Adjacency stays visible in the dark")
	}
	if crew.Sabotage == nil || crew.Sabotage.Active == nil || crew.Sabotage.Active.Type != "lights" {
		t.Errorf("Expected the lights sabotage in the view, got %+v", crew.Sabotage)
	}
	if crew.Sabotage.Active.Countdown != 0 {
		t.Errorf("Non-critical sabotage has no countdown, got %d", crew.Sabotage.Active.Countdown)
	}

	imp := s.ObservationFor("player_4", PhaseTask)
	if len(imp.RoomObservations.PlayersPresent) == 0 || len(imp.RoomObservations.BodiesPresent) == 0 {
		t.Errorf("Impostors see through the dark, got %+v", imp.RoomObservations)
	}
}

// TestCommsHideTaskLists withholds task lists while comms are down
func TestCommsHideTaskLists(t *testing.T) {
	s := newBoard(t, 5, 1)
	giveTask(s, "player_0", "task_0", "Fix Wiring", "Electrical", 2, 1, false)
	giveTask(s, "player_4", "task_1", "Prime Shields", "Shields", 2, 0, false)
	s.ActiveSabotage = &ActiveSabotage{
		Type:        "comms",
		FixProgress: map[string]int{"Communications": 0},
		FixRequired: map[string]int{"Communications": 3},
	}

	for _, id := range []string{"player_0", "player_4"} {
		tasks := s.ObservationFor(id, PhaseTask).Tasks
		if !tasks.CommsDisabled {
			t.Errorf("Expected comms_disabled for %s", id)
		}
		if tasks.YourTasks != nil {
			t.Errorf("Task list must be withheld for %s, got %+v", id, tasks.YourTasks)
		}
	}
	// Global progress is still reported; only the list is hidden.
	if got := s.ObservationFor("player_0", PhaseTask).Tasks.GlobalTaskProgress; got != 0.5 {
		t.Errorf("Expected progress 0.5 under comms, got %v", got)
	}
}

// TestCriticalSabotageView exposes the countdown and flips the action flags
func TestCriticalSabotageView(t *testing.T) {
	s := newBoard(t, 7, 2)
	s.Players["player_0"].Location = "Reactor"
	s.ActiveSabotage = &ActiveSabotage{
		Type:        "reactor",
		Critical:    true,
		Countdown:   3,
		FixProgress: map[string]int{"Reactor": 1},
		FixRequired: map[string]int{"Reactor": 4},
	}

	view := s.ObservationFor("player_0", PhaseTask).Sabotage.Active
	if view.Countdown != 3 {
		t.Errorf("Expected countdown 3, got %d", view.Countdown)
	}
	if view.FixProgress["Reactor"] != 1 || view.FixRequired["Reactor"] != 4 {
		t.Errorf("Fix maps mismatch: %+v", view)
	}

	atFix := s.ObservationFor("player_0", PhaseTask).AvailableActions
	if !atFix.CanFix {
		t.Error("Expected fix available in the fix room")
	}
	elsewhere := s.ObservationFor("player_1", PhaseTask).AvailableActions
	if elsewhere.CanFix {
		t.Error("Fix must require standing in a fix room")
	}
	if elsewhere.CanEmergency {
		t.Error("The button is dead during a critical sabotage")
	}
	if s.ObservationFor("player_5", PhaseTask).AvailableActions.CanSabotage {
		t.Error("Sabotage must be unavailable while one is active")
	}
}

// TestGhostObservationView reduces the dead to identity, rosters, and tasks
func TestGhostObservationView(t *testing.T) {
	s := newBoard(t, 5, 1)
	giveTask(s, "player_1", "task_0", "Fix Wiring", "Electrical", 2, 1, false)
	killPlayer(s, "player_1")
	s.Players["player_2"].Alive = false
	s.Players["player_2"].Ejected = true

	obs := s.ObservationFor("player_1", PhaseTask)
	if obs.RoomObservations != nil || obs.AvailableActions != nil || obs.EventsLastRound != nil {
		t.Errorf("Ghost view leaked living-player sections: %+v", obs)
	}
	roster := obs.Players
	if roster == nil {
		t.Fatal("Expected a roster")
	}
	if diff := cmp.Diff([]string{"player_0", "player_3", "player_4"}, roster.Alive); diff != "" {
		t.Errorf("Alive roster mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"player_1"}, roster.Dead); diff != "" {
		t.Errorf("Dead roster mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"player_2"}, roster.Ejected); diff != "" {
		t.Errorf("Ejected roster mismatch:\n%s", diff)
	}
	if len(obs.Tasks.YourTasks) != 1 {
		t.Errorf("Ghosts keep their task list, got %+v", obs.Tasks)
	}
	if obs.Tasks.Fake {
		t.Error("A crewmate ghost's tasks are real")
	}
}

// TestMeetingObservationView carries context, transcript, memory, and rosters
func TestMeetingObservationView(t *testing.T) {
	s := newBoard(t, 5, 1)
	s.Round = 4
	killPlayer(s, "player_2")
	s.MeetingContext = &MeetingContext{
		Trigger:      TriggerBodyReport,
		Caller:       "player_1",
		BodyFound:    "player_2",
		BodyLocation: "Storage",
	}
	s.Phase = PhaseDiscussion
	s.AppendChat("player_1", 1, "found player_2 in Storage")
	s.AppendChat("player_4", 1, "I was in MedBay all game")
	s.MovementHistory["player_0"] = []Movement{{Round: 3, Location: "Cafeteria"}}
	s.SightingHistory["player_0"] = []Sighting{{Round: 3, PlayerID: "player_4", Location: "Cafeteria", LastAction: "wait"}}

	obs := s.ObservationFor("player_0", PhaseDiscussion)
	if obs.GameMetadata.Phase != PhaseDiscussion {
		t.Errorf("Expected DISCUSSION metadata, got %s", obs.GameMetadata.Phase)
	}
	if obs.RoomObservations != nil || obs.Tasks != nil || obs.AvailableActions != nil {
		t.Error("Meeting views carry no room or task sections")
	}
	if obs.MeetingContext == nil || obs.MeetingContext.BodyFound != "player_2" {
		t.Errorf("Meeting context mismatch: %+v", obs.MeetingContext)
	}

	wantChat := []ChatEntry{
		{Speaker: "player_1", Message: "found player_2 in Storage"},
		{Speaker: "player_4", Message: "I was in MedBay all game"},
	}
	if diff := cmp.Diff(wantChat, obs.ChatHistory); diff != "" {
		t.Errorf("Chat mismatch:\n%s", diff)
	}
	if len(obs.Memory.Movements) != 1 || obs.Memory.Movements[0].Location != "Cafeteria" {
		t.Errorf("Movement memory mismatch: %+v", obs.Memory)
	}
	if len(obs.Memory.Sightings) != 1 || obs.Memory.Sightings[0].PlayerID != "player_4" {
		t.Errorf("Sighting memory mismatch: %+v", obs.Memory)
	}
	if diff := cmp.Diff([]string{"player_2"}, obs.Players.Dead); diff != "" {
		t.Errorf("Roster mismatch:\n%s", diff)
	}

	// The context is a copy; later mutation must not reach the observation.
	s.MeetingContext.Caller = "player_3"
	if obs.MeetingContext.Caller != "player_1" {
		t.Error("Observation aliased the live meeting context")
	}
}

// TestObservationUnknownPlayer returns nil for ids off the roster
func TestObservationUnknownPlayer(t *testing.T) {
	s := newBoard(t, 5, 1)
	if obs := s.ObservationFor("stranger", PhaseTask); obs != nil {
		t.Errorf("Expected nil for an unknown id, got %+v", obs)
	}
}

// TestObservationDoesNotAliasState proves views are safe to retain and mutate
func TestObservationDoesNotAliasState(t *testing.T) {
	s := newBoard(t, 7, 2)
	giveTask(s, "player_0", "task_0", "Fix Wiring", "Electrical", 2, 1, false)
	killPlayer(s, "player_3")
	s.Bodies = append(s.Bodies, Body{PlayerID: "player_3", Location: "Cafeteria"})
	s.ActiveSabotage = &ActiveSabotage{
		Type:        "o2",
		Critical:    true,
		Countdown:   2,
		FixProgress: map[string]int{"O2": 0, "Admin": 1},
		FixRequired: map[string]int{"O2": 2, "Admin": 2},
	}
	s.Events["player_0"] = []string{"player_1 arrived from MedBay"}
	s.AdminSnapshot = map[string]map[string]int{"player_0": {"Cafeteria": 5}}
	s.ActionResults["player_0"] = ActionResult{Action: ActionWait, Success: true}
	s.MovementHistory["player_0"] = []Movement{{Round: 1, Location: "Cafeteria"}}
	s.SightingHistory["player_0"] = []Sighting{{Round: 1, PlayerID: "player_1", Location: "Cafeteria", LastAction: "wait"}}
	s.MeetingContext = &MeetingContext{Trigger: TriggerEmergency, Caller: "player_0"}
	s.AppendChat("player_0", 1, "sus")

	before := stateJSON(t, s)

	for _, id := range s.PlayerIDs() {
		for _, phase := range []Phase{PhaseTask, PhaseDiscussion, PhaseVoting} {
			s.ObservationFor(id, phase)
		}
	}
	if diff := cmp.Diff(before, stateJSON(t, s)); diff != "" {
		t.Fatalf("Building observations mutated the state:\n%s", diff)
	}

	// Scribble over every snapshot the view hands out.
	obs := s.ObservationFor("player_0", PhaseTask)
	obs.RoomObservations.AdjacentRooms[0] = "Nowhere"
	obs.RoomObservations.PlayersPresent[0].ID = "nobody"
	obs.RoomObservations.BodiesPresent[0] = "nobody"
	obs.EventsLastRound[0] = "rewritten"
	obs.Tasks.YourTasks[0].Progress = 99
	obs.Sabotage.Active.FixProgress["O2"] = 99
	obs.Sabotage.Active.FixRequired["Admin"] = 99
	obs.AdminTable["Cafeteria"] = 99
	obs.PreviousResult.Reason = "rewritten"

	meeting := s.ObservationFor("player_0", PhaseVoting)
	meeting.MeetingContext.Caller = "nobody"
	meeting.ChatHistory[0].Message = "rewritten"
	meeting.Memory.Sightings[0].Location = "Nowhere"
	meeting.Memory.Movements[0].Location = "Nowhere"
	meeting.Players.Alive[0] = "nobody"

	if diff := cmp.Diff(before, stateJSON(t, s)); diff != "" {
		t.Errorf("Observation snapshots alias live state:\n%s", diff)
	}
}
