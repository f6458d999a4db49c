package game

import (
	"fmt"
	"sort"
	"strings"
)

// FormatObservation renders an observation as the plain-text block fed to
// language-model agents. The wording is stable; prompt-sensitive agents
// depend on these exact lines.
func FormatObservation(obs *Observation) string {
	if obs == nil {
		return ""
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("Round %d. You are %s (%s) in %s.",
		obs.GameMetadata.RoundNumber, obs.Identity.YourID, obs.Identity.YourRole, obs.Identity.YourLocation))

	if room := obs.RoomObservations; room != nil {
		players := make([]string, 0, len(room.PlayersPresent))
		for _, p := range room.PlayersPresent {
			players = append(players, fmt.Sprintf("%s (%s)", p.ID, p.LastAction))
		}
		parts = append(parts, "Players here: "+joinOrNone(players))
		parts = append(parts, "Bodies: "+joinOrNone(room.BodiesPresent))
		parts = append(parts, "ADJACENT ROOMS (you can only move here): "+strings.Join(room.AdjacentRooms, ", ")+".")
	}

	if len(obs.EventsLastRound) > 0 {
		parts = append(parts, "Events last round: "+strings.Join(obs.EventsLastRound, ". ")+".")
	}

	if tasks := obs.Tasks; tasks != nil {
		if tasks.CommsDisabled {
			parts = append(parts, "Your task list is disabled (comms sabotage).")
		} else if len(tasks.YourTasks) > 0 {
			lines := make([]string, 0, len(tasks.YourTasks))
			var here []string
			for _, t := range tasks.YourTasks {
				lines = append(lines, fmt.Sprintf("%s in %s (%d/%d) [ID: %s]", t.Name, t.Location, t.Progress, t.Required, t.IDToUse))
				if t.Location == obs.Identity.YourLocation && t.Progress < t.Required {
					here = append(here, t.IDToUse)
				}
			}
			parts = append(parts, "Your tasks: "+strings.Join(lines, ", ")+".")
			if len(here) > 0 {
				parts = append(parts, "AVAILABLE TASKS IN THIS ROOM: "+strings.Join(here, ", ")+".")
			} else {
				parts = append(parts, "No tasks available in this room. Move to another room to find tasks.")
			}
		}
		parts = append(parts, fmt.Sprintf("Global task progress: %d%%", int(tasks.GlobalTaskProgress*100)))
	}

	if obs.Sabotage != nil && obs.Sabotage.Active != nil {
		sab := obs.Sabotage.Active
		fixRooms := make([]string, 0, len(sab.FixRequired))
		for room := range sab.FixRequired {
			fixRooms = append(fixRooms, room)
		}
		sort.Strings(fixRooms)
		countdown := "no"
		if sab.Countdown > 0 {
			countdown = fmt.Sprintf("%d", sab.Countdown)
		}
		parts = append(parts, fmt.Sprintf("ALERT: %s sabotage active! %s rounds left. Fix at %s.", sab.Type, countdown, strings.Join(fixRooms, ", ")))
	}

	if ii := obs.ImpostorInfo; ii != nil {
		parts = append(parts, fmt.Sprintf("Your teammates: %s. Kill cooldown: %d.", joinOrNoneBare(ii.Teammates), ii.KillCooldown))
	}

	if obs.AdminTable != nil {
		rooms := make([]string, 0, len(obs.AdminTable))
		for room := range obs.AdminTable {
			rooms = append(rooms, room)
		}
		sort.Strings(rooms)
		entries := make([]string, 0, len(rooms))
		for _, room := range rooms {
			entries = append(entries, fmt.Sprintf("%s: %d", room, obs.AdminTable[room]))
		}
		parts = append(parts, "Admin table readout: "+strings.Join(entries, ", ")+".")
	}

	if avail := obs.AvailableActions; avail != nil {
		var flags []string
		if avail.CanReport {
			flags = append(flags, "can_report")
		}
		if avail.CanEmergency {
			flags = append(flags, "can_emergency")
		}
		if avail.CanKill {
			flags = append(flags, "can_kill")
		}
		if avail.CanSabotage {
			flags = append(flags, "can_sabotage")
		}
		if avail.CanFix {
			flags = append(flags, "can_fix")
		}
		if len(flags) > 0 {
			parts = append(parts, "Available actions: "+strings.Join(flags, ", ")+".")
		}
	}

	if prev := obs.PreviousResult; prev != nil {
		if prev.Success {
			parts = append(parts, fmt.Sprintf("Your last action (%s) succeeded.", prev.Action))
		} else {
			parts = append(parts, fmt.Sprintf("Your last action (%s) failed: %s.", prev.Action, prev.Reason))
		}
	}

	if mc := obs.MeetingContext; mc != nil {
		line := fmt.Sprintf("MEETING (%s) called by %s.", mc.Trigger, mc.Caller)
		if mc.BodyFound != "" {
			line += fmt.Sprintf(" Body of %s found in %s.", mc.BodyFound, mc.BodyLocation)
		}
		parts = append(parts, line)
	}

	if len(obs.ChatHistory) > 0 {
		lines := make([]string, 0, len(obs.ChatHistory))
		for _, m := range obs.ChatHistory {
			lines = append(lines, fmt.Sprintf("%s: %s", m.Speaker, m.Message))
		}
		parts = append(parts, "Chat so far:\n"+strings.Join(lines, "\n"))
	}

	if mem := obs.Memory; mem != nil && len(mem.Sightings) > 0 {
		lines := make([]string, 0, len(mem.Sightings))
		for _, sg := range mem.Sightings {
			lines = append(lines, fmt.Sprintf("round %d: saw %s in %s (%s)", sg.Round, sg.PlayerID, sg.Location, sg.LastAction))
		}
		parts = append(parts, "You remember:\n"+strings.Join(lines, "\n"))
	}

	if roster := obs.Players; roster != nil {
		parts = append(parts, "Alive: "+joinOrNoneBare(roster.Alive))
		if len(roster.Dead) > 0 {
			parts = append(parts, "Dead: "+joinOrNoneBare(roster.Dead))
		}
		if len(roster.Ejected) > 0 {
			parts = append(parts, "Ejected: "+joinOrNoneBare(roster.Ejected))
		}
	}

	return strings.Join(parts, "\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None."
	}
	return strings.Join(items, ", ") + "."
}

func joinOrNoneBare(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
