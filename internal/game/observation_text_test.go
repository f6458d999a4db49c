package game

import (
	"strings"
	"testing"
)

func wantLines(t *testing.T, text string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(text, line) {
			t.Errorf("Expected %q in rendered observation:\n%s", line, text)
		}
	}
}

// TestFormatObservationNil renders nothing for a missing view
func TestFormatObservationNil(t *testing.T) {
	if got := FormatObservation(nil); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}

// TestFormatObservationTaskView renders the standard TASK-phase block
func TestFormatObservationTaskView(t *testing.T) {
	obs := &Observation{
		GameMetadata: GameMetadata{RoundNumber: 5, Phase: PhaseTask},
		Identity:     Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Cafeteria"},
		RoomObservations: &RoomObservations{
			PlayersPresent: []RoomPlayer{{ID: "player_1", LastAction: "wait"}},
			BodiesPresent:  []string{},
			AdjacentRooms:  []string{"Weapons", "MedBay"},
		},
		EventsLastRound: []string{"player_1 arrived from MedBay"},
		Tasks: &TasksSection{
			YourTasks:          []TaskView{{IDToUse: "task_0", Name: "Fix Wiring", Location: "Electrical", Progress: 0, Required: 2}},
			GlobalTaskProgress: 0.25,
		},
		AvailableActions: &AvailableActions{CanReport: true, CanEmergency: true},
		PreviousResult:   &ActionResult{Action: ActionMove, Success: true},
	}

	text := FormatObservation(obs)
	wantLines(t, text,
		"Round 5. You are player_0 (crewmate) in Cafeteria.",
		"Players here: player_1 (wait).",
		"Bodies: None.",
		"ADJACENT ROOMS (you can only move here): Weapons, MedBay.",
		"Events last round: player_1 arrived from MedBay.",
		"Your tasks: Fix Wiring in Electrical (0/2) [ID: task_0].",
		"No tasks available in this room. Move to another room to find tasks.",
		"Global task progress: 25%",
		"Available actions: can_report, can_emergency.",
		"Your last action (move) succeeded.",
	)
}

// TestFormatObservationTasksHere points out workable tasks in the room
func TestFormatObservationTasksHere(t *testing.T) {
	obs := &Observation{
		Identity: Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Electrical"},
		Tasks: &TasksSection{
			YourTasks: []TaskView{
				{IDToUse: "task_0", Name: "Fix Wiring", Location: "Electrical", Progress: 1, Required: 2},
				{IDToUse: "task_1", Name: "Calibrate Distributor", Location: "Electrical", Progress: 2, Required: 2},
			},
			GlobalTaskProgress: 0.75,
		},
	}

	text := FormatObservation(obs)
	wantLines(t, text, "AVAILABLE TASKS IN THIS ROOM: task_0.")
	if strings.Contains(text, "AVAILABLE TASKS IN THIS ROOM: task_0, task_1") {
		t.Error("Completed tasks must not be offered as available")
	}
}

// TestFormatObservationSabotageAlert renders countdown and fix rooms
func TestFormatObservationSabotageAlert(t *testing.T) {
	obs := &Observation{
		Identity: Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Admin"},
		Sabotage: &SabotageSection{Active: &SabotageView{
			Type:        "o2",
			Countdown:   2,
			FixRequired: map[string]int{"O2": 2, "Admin": 2},
			FixProgress: map[string]int{"O2": 0, "Admin": 1},
		}},
	}
	wantLines(t, FormatObservation(obs), "ALERT: o2 sabotage active! 2 rounds left. Fix at Admin, O2.")

	obs.Sabotage.Active = &SabotageView{Type: "lights", FixRequired: map[string]int{"Electrical": 3}}
	wantLines(t, FormatObservation(obs), "ALERT: lights sabotage active! no rounds left. Fix at Electrical.")
}

// TestFormatObservationImpostorLines renders teammates, cooldown, and admin
func TestFormatObservationImpostorLines(t *testing.T) {
	obs := &Observation{
		Identity:     Identity{YourID: "player_5", YourRole: RoleImpostor, YourLocation: "Admin"},
		ImpostorInfo: &ImpostorInfo{Teammates: []string{"player_6"}, KillCooldown: 1},
		AdminTable:   map[string]int{"MedBay": 1, "Cafeteria": 3},
	}
	wantLines(t, FormatObservation(obs),
		"Your teammates: player_6. Kill cooldown: 1.",
		"Admin table readout: Cafeteria: 3, MedBay: 1.",
	)

	obs.ImpostorInfo.Teammates = nil
	wantLines(t, FormatObservation(obs), "Your teammates: none. Kill cooldown: 1.")
}

// TestFormatObservationCommsNotice replaces the task list with a notice
func TestFormatObservationCommsNotice(t *testing.T) {
	obs := &Observation{
		Identity: Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Storage"},
		Tasks:    &TasksSection{CommsDisabled: true, GlobalTaskProgress: 0.5},
	}
	text := FormatObservation(obs)
	wantLines(t, text, "Your task list is disabled (comms sabotage).", "Global task progress: 50%")
	if strings.Contains(text, "Your tasks:") {
		t.Error("Task list must be withheld during a comms sabotage")
	}
}

// TestFormatObservationMeetingView renders context, chat, memory, and rosters
func TestFormatObservationMeetingView(t *testing.T) {
	obs := &Observation{
		GameMetadata: GameMetadata{RoundNumber: 6, Phase: PhaseVoting},
		Identity:     Identity{YourID: "player_0", YourRole: RoleCrewmate, YourLocation: "Cafeteria"},
		MeetingContext: &MeetingContext{
			Trigger:      TriggerBodyReport,
			Caller:       "player_1",
			BodyFound:    "player_2",
			BodyLocation: "Storage",
		},
		ChatHistory: []ChatEntry{
			{Speaker: "player_1", Message: "found player_2 in Storage"},
			{Speaker: "player_4", Message: "I was in MedBay"},
		},
		Memory: &MemoryView{
			Sightings: []Sighting{{Round: 3, PlayerID: "player_4", Location: "Cafeteria", LastAction: "wait"}},
		},
		Players: &RosterView{
			Alive:   []string{"player_0", "player_1", "player_4"},
			Dead:    []string{"player_2"},
			Ejected: []string{"player_3"},
		},
		PreviousResult: &ActionResult{Action: ActionDoTask, Success: false, Reason: "task is in Electrical, you are in Storage"},
	}

	wantLines(t, FormatObservation(obs),
		"MEETING (body_report) called by player_1. Body of player_2 found in Storage.",
		"Chat so far:\nplayer_1: found player_2 in Storage\nplayer_4: I was in MedBay",
		"You remember:\nround 3: saw player_4 in Cafeteria (wait)",
		"Alive: player_0, player_1, player_4",
		"Dead: player_2",
		"Ejected: player_3",
		"Your last action (do_task) failed: task is in Electrical, you are in Storage.",
	)
}
