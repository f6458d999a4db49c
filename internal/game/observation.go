package game

// Observation is the per-player, per-phase view of the game. Every field
// is a snapshot: agents may retain observations without aliasing live
// state. Wire names are part of the persisted-artifact contract.
type Observation struct {
	GameMetadata     GameMetadata      `json:"game_metadata"`
	Identity         Identity          `json:"identity"`
	RoomObservations *RoomObservations `json:"room_observations,omitempty"`
	EventsLastRound  []string          `json:"events_last_round,omitempty"`
	Tasks            *TasksSection     `json:"tasks,omitempty"`
	Sabotage         *SabotageSection  `json:"sabotage,omitempty"`
	ImpostorInfo     *ImpostorInfo     `json:"impostor_info,omitempty"`
	AdminTable       map[string]int    `json:"admin_table,omitempty"`
	AvailableActions *AvailableActions `json:"available_actions,omitempty"`
	PreviousResult   *ActionResult     `json:"previous_action_result,omitempty"`
	ChatHistory      []ChatEntry       `json:"chat_history,omitempty"`
	MeetingContext   *MeetingContext   `json:"meeting_context,omitempty"`
	Players          *RosterView       `json:"players,omitempty"`
	Memory           *MemoryView       `json:"memory,omitempty"`
}

// GameMetadata carries round-level facts every view shares.
type GameMetadata struct {
	RoundNumber int   `json:"round_number"`
	Phase       Phase `json:"phase"`
}

// Identity tells a player who and where they are.
type Identity struct {
	YourID       string `json:"your_id"`
	YourRole     Role   `json:"your_role"`
	YourLocation string `json:"your_location"`
}

// RoomPlayer is a co-located player as seen from outside: id plus the
// label of whatever they were last seen doing.
type RoomPlayer struct {
	ID         string `json:"id"`
	LastAction string `json:"last_action"`
}

// RoomObservations is what a living player perceives in their room. Lights
// sabotage empties PlayersPresent and BodiesPresent for crewmates.
type RoomObservations struct {
	PlayersPresent []RoomPlayer `json:"players_present"`
	BodiesPresent  []string     `json:"bodies_present"`
	AdjacentRooms  []string     `json:"adjacent_rooms"`
}

// TaskView is one assigned task as shown to its owner. IDToUse is the
// exact do_task target string.
type TaskView struct {
	IDToUse  string `json:"id_to_use"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Progress int    `json:"progress"`
	Required int    `json:"required"`
	Visual   bool   `json:"visual"`
}

// TasksSection groups a player's task list with global progress. During a
// comms sabotage the list is withheld and CommsDisabled is set. Impostor
// lists are marked Fake; they never advance global progress.
type TasksSection struct {
	YourTasks          []TaskView `json:"your_tasks,omitempty"`
	GlobalTaskProgress float64    `json:"global_task_progress"`
	CommsDisabled      bool       `json:"comms_disabled,omitempty"`
	Fake               bool       `json:"fake,omitempty"`
}

// SabotageSection wraps the currently active sabotage, if any.
type SabotageSection struct {
	Active *SabotageView `json:"active,omitempty"`
}

// SabotageView is the public shape of an active sabotage.
type SabotageView struct {
	Type        string         `json:"type"`
	Countdown   int            `json:"countdown,omitempty"`
	FixProgress map[string]int `json:"fix_progress"`
	FixRequired map[string]int `json:"fix_required"`
}

// ImpostorInfo is visible to impostors only.
type ImpostorInfo struct {
	Teammates    []string `json:"teammates"`
	KillCooldown int      `json:"kill_cooldown"`
}

// AvailableActions flags what the player could legally attempt this round.
type AvailableActions struct {
	CanReport    bool `json:"can_report"`
	CanEmergency bool `json:"can_emergency"`
	CanKill      bool `json:"can_kill"`
	CanSabotage  bool `json:"can_sabotage"`
	CanFix       bool `json:"can_fix"`
}

// ChatEntry is one line of meeting chat as shown to agents.
type ChatEntry struct {
	Speaker string `json:"speaker"`
	Message string `json:"message"`
}

// RosterView lists players by liveness. Dead excludes the ejected.
type RosterView struct {
	Alive   []string `json:"alive"`
	Dead    []string `json:"dead"`
	Ejected []string `json:"ejected"`
}

// MemoryView summarizes what the player remembers, for meeting phases.
type MemoryView struct {
	Sightings []Sighting `json:"sightings"`
	Movements []Movement `json:"movements"`
}

// ObservationFor builds the view of the game that player id may legally
// perceive in the given phase. Pure: the state is never mutated.
func (s *State) ObservationFor(id string, phase Phase) *Observation {
	p, ok := s.Players[id]
	if !ok {
		return nil
	}
	switch phase {
	case PhaseDiscussion, PhaseVoting:
		return s.meetingObservation(p, phase)
	default:
		if p.IsGhost() {
			return s.ghostObservation(p)
		}
		return s.taskObservation(p)
	}
}

func (s *State) baseObservation(p *Player, phase Phase) *Observation {
	return &Observation{
		GameMetadata: GameMetadata{RoundNumber: s.Round, Phase: phase},
		Identity:     Identity{YourID: p.ID, YourRole: p.Role, YourLocation: p.Location},
	}
}

// taskObservation is the full TASK-phase view for a living player.
func (s *State) taskObservation(p *Player) *Observation {
	obs := s.baseObservation(p, PhaseTask)

	room := &RoomObservations{
		PlayersPresent: []RoomPlayer{},
		BodiesPresent:  []string{},
		AdjacentRooms:  s.catalog.AdjacentRooms(p.Location),
	}
	if !s.blinded(p.ID) {
		for _, other := range s.PlayersInRoom(p.Location) {
			if other == p.ID {
				continue
			}
			op := s.Players[other]
			room.PlayersPresent = append(room.PlayersPresent, RoomPlayer{ID: other, LastAction: op.LastAction})
		}
		room.BodiesPresent = s.BodiesInRoom(p.Location)
	}
	obs.RoomObservations = room

	obs.EventsLastRound = append([]string(nil), s.Events[p.ID]...)
	obs.Tasks = s.tasksSection(p)

	if s.ActiveSabotage != nil {
		obs.Sabotage = &SabotageSection{Active: s.sabotageView()}
	}
	if p.Role == RoleImpostor {
		obs.ImpostorInfo = &ImpostorInfo{
			Teammates:    s.Teammates(p.ID),
			KillCooldown: p.KillCooldown,
		}
	}
	if snap, ok := s.AdminSnapshot[p.ID]; ok {
		obs.AdminTable = copyIntMap(snap)
	}
	obs.AvailableActions = s.availableActions(p)
	if r, ok := s.ActionResults[p.ID]; ok {
		rc := r
		obs.PreviousResult = &rc
	}
	return obs
}

// ghostObservation is the reduced view for dead, non-ejected players:
// identity, rosters, own tasks, global progress, and round metadata only.
func (s *State) ghostObservation(p *Player) *Observation {
	obs := s.baseObservation(p, PhaseTask)
	obs.Players = s.rosterView()
	obs.Tasks = &TasksSection{
		YourTasks:          s.taskViews(p.ID),
		GlobalTaskProgress: s.GlobalTaskProgress(),
		Fake:               p.Role == RoleImpostor,
	}
	return obs
}

// meetingObservation is the DISCUSSION/VOTING view: no room facts, full
// transcript, memory summary, rosters.
func (s *State) meetingObservation(p *Player, phase Phase) *Observation {
	obs := s.baseObservation(p, phase)
	if s.MeetingContext != nil {
		mc := *s.MeetingContext
		obs.MeetingContext = &mc
	}
	obs.ChatHistory = make([]ChatEntry, 0, len(s.ChatHistory))
	for _, m := range s.ChatHistory {
		obs.ChatHistory = append(obs.ChatHistory, ChatEntry{Speaker: m.Speaker, Message: m.Text})
	}
	obs.Memory = &MemoryView{
		Sightings: append([]Sighting(nil), s.SightingHistory[p.ID]...),
		Movements: append([]Movement(nil), s.MovementHistory[p.ID]...),
	}
	obs.Players = s.rosterView()
	return obs
}

func (s *State) tasksSection(p *Player) *TasksSection {
	section := &TasksSection{GlobalTaskProgress: s.GlobalTaskProgress()}
	if s.commsDown() {
		section.CommsDisabled = true
		return section
	}
	section.YourTasks = s.taskViews(p.ID)
	section.Fake = p.Role == RoleImpostor
	return section
}

func (s *State) taskViews(id string) []TaskView {
	tasks := s.Tasks[id]
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{
			IDToUse:  t.ID,
			Name:     t.Name,
			Location: t.Location,
			Progress: t.Progress,
			Required: t.Required,
			Visual:   t.Visual,
		})
	}
	return views
}

func (s *State) sabotageView() *SabotageView {
	sab := s.ActiveSabotage
	view := &SabotageView{
		Type:        sab.Type,
		FixProgress: copyIntMap(sab.FixProgress),
		FixRequired: copyIntMap(sab.FixRequired),
	}
	if sab.Critical {
		view.Countdown = sab.Countdown
	}
	return view
}

func (s *State) rosterView() *RosterView {
	view := &RosterView{Alive: []string{}, Dead: []string{}, Ejected: []string{}}
	for _, id := range s.PlayerIDs() {
		p := s.Players[id]
		switch {
		case p.Alive:
			view.Alive = append(view.Alive, id)
		case p.Ejected:
			view.Ejected = append(view.Ejected, id)
		default:
			view.Dead = append(view.Dead, id)
		}
	}
	return view
}

// availableActions derives the action flags of a living player.
func (s *State) availableActions(p *Player) *AvailableActions {
	criticalActive := s.ActiveSabotage != nil && s.ActiveSabotage.Critical
	a := &AvailableActions{
		CanReport: len(s.BodiesInRoom(p.Location)) > 0,
		CanEmergency: p.Location == s.catalog.SpawnRoom &&
			p.EmergencyMeetings > 0 && !criticalActive,
	}
	if p.Role == RoleImpostor {
		a.CanKill = p.KillCooldown == 0
		a.CanSabotage = s.ActiveSabotage == nil && s.SabotageCooldown == 0
	}
	if s.ActiveSabotage != nil {
		_, a.CanFix = s.ActiveSabotage.FixRequired[p.Location]
	}
	return a
}
