package game

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Role is a player's hidden allegiance.
type Role string

const (
	RoleCrewmate Role = "crewmate"
	RoleImpostor Role = "impostor"
)

// Phase is the coarse game state machine label.
type Phase string

const (
	PhaseTask       Phase = "TASK"
	PhaseDiscussion Phase = "DISCUSSION"
	PhaseVoting     Phase = "VOTING"
	PhaseGameOver   Phase = "GAME_OVER"
)

// Winner labels for Result.Winner and State.Winner.
const (
	WinnerCrewmates = "crewmates"
	WinnerImpostors = "impostors"
)

// Win causes.
const (
	CauseAllImpostorsEliminated = "all_impostors_eliminated"
	CauseImpostorsMajority      = "impostors_majority"
	CauseAllTasksCompleted      = "all_tasks_completed"
	CauseTimeout                = "timeout"
	// Critical sabotage causes are "sabotage_" + type, e.g. "sabotage_reactor".
)

// Player is one seat in a game. Ejected implies not Alive; a dead,
// non-ejected player is a ghost.
type Player struct {
	ID                string `json:"id"`
	Role              Role   `json:"role"`
	Alive             bool   `json:"alive"`
	Ejected           bool   `json:"ejected"`
	Location          string `json:"location"`
	EmergencyMeetings int    `json:"emergency_meetings_remaining"`
	KillCooldown      int    `json:"kill_cooldown"`
	LastAction        string `json:"last_action"`
}

// IsGhost reports whether the player is dead but still aboard.
func (p *Player) IsGhost() bool {
	return !p.Alive && !p.Ejected
}

// Task is a task instance assigned to one player. IDs are unique within
// that player and double as the do_task target.
type Task struct {
	ID       string `json:"task_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Required int    `json:"required"`
	Progress int    `json:"progress"`
	Visual   bool   `json:"visual"`
}

// Completed reports whether the task needs no further steps.
func (t *Task) Completed() bool {
	return t.Progress >= t.Required
}

// Body is the corpse of a killed (never an ejected) player.
type Body struct {
	PlayerID string `json:"player_id"`
	Location string `json:"location"`
}

// ActiveSabotage is the at-most-one sabotage in progress. Countdown is
// meaningful only when Critical.
type ActiveSabotage struct {
	Type        string         `json:"type"`
	Critical    bool           `json:"critical"`
	Countdown   int            `json:"countdown"`
	FixProgress map[string]int `json:"fix_progress"`
	FixRequired map[string]int `json:"fix_required"`
}

// Fixed reports whether every fix location has met its requirement.
func (s *ActiveSabotage) Fixed() bool {
	for room, required := range s.FixRequired {
		if s.FixProgress[room] < required {
			return false
		}
	}
	return true
}

// ChatMessage is one meeting utterance, already trimmed to the limit.
type ChatMessage struct {
	Speaker  string `json:"speaker"`
	Rotation int    `json:"rotation"`
	Text     string `json:"message"`
}

// MeetingTrigger is what started a meeting.
type MeetingTrigger string

const (
	TriggerBodyReport MeetingTrigger = "body_report"
	TriggerEmergency  MeetingTrigger = "emergency_meeting"
)

// MeetingContext describes the meeting currently in progress.
type MeetingContext struct {
	Trigger      MeetingTrigger `json:"trigger"`
	Caller       string         `json:"caller"`
	BodyFound    string         `json:"body_found,omitempty"`
	BodyLocation string         `json:"body_location,omitempty"`
}

// MeetingRecord archives a concluded meeting.
type MeetingRecord struct {
	Round        int               `json:"round"`
	Trigger      MeetingTrigger    `json:"trigger"`
	Caller       string            `json:"caller"`
	BodyFound    string            `json:"body_found,omitempty"`
	Transcript   []ChatMessage     `json:"transcript"`
	Votes        map[string]string `json:"votes"`
	Tally        map[string]int    `json:"tally"`
	Ejected      string            `json:"ejected_player,omitempty"`
	RoleRevealed Role              `json:"role_revealed,omitempty"`
}

// Sighting is one remembered co-location observation.
type Sighting struct {
	Round      int    `json:"round"`
	PlayerID   string `json:"player_id"`
	Location   string `json:"location"`
	LastAction string `json:"last_action"`
}

// Movement is one remembered own-position entry.
type Movement struct {
	Round    int    `json:"round"`
	Location string `json:"location"`
}

// RoundLog records one resolved round: the actions as submitted (after
// shape normalization, before validation) and every player's result.
// Replaying the actions of a logged round against the prior state must
// reproduce the logged successor exactly.
type RoundLog struct {
	Round   int                     `json:"round"`
	Actions map[string]Action       `json:"actions"`
	Results map[string]ActionResult `json:"results"`
}

// State is the full mutable record of one game. It is owned by exactly one
// engine; nothing mutates it outside the resolver and the meeting flow.
// The catalog is shared and excluded from serialization; reattach it with
// AttachCatalog after loading.
type State struct {
	Config  Config   `json:"config"`
	catalog *Catalog

	Phase    Phase  `json:"phase"`
	Round    int    `json:"round_number"`
	Winner   string `json:"winner,omitempty"`
	WinCause string `json:"win_cause,omitempty"`

	Players map[string]*Player `json:"players"`
	Tasks   map[string][]*Task `json:"tasks"`

	Bodies           []Body          `json:"bodies"`
	ActiveSabotage   *ActiveSabotage `json:"active_sabotage,omitempty"`
	SabotageCooldown int             `json:"sabotage_cooldown"`

	MeetingContext *MeetingContext `json:"meeting_context,omitempty"`
	SpeakerOrder   []string        `json:"speaker_order,omitempty"`
	ChatHistory    []ChatMessage   `json:"chat_history"`

	Events        map[string][]string       `json:"events"`
	AdminSnapshot map[string]map[string]int `json:"admin_table_snapshot,omitempty"`
	ActionResults map[string]ActionResult   `json:"action_results"`

	MovementHistory map[string][]Movement `json:"movement_history"`
	SightingHistory map[string][]Sighting `json:"sighting_history"`
	MeetingHistory  []MeetingRecord       `json:"meeting_history"`

	GameLog []RoundLog `json:"game_log"`
}

// NewState builds an empty TASK-phase state. Players and tasks are dealt
// by the engine during setup.
func NewState(cfg Config, catalog *Catalog) *State {
	return &State{
		Config:          cfg,
		catalog:         catalog,
		Phase:           PhaseTask,
		Players:         make(map[string]*Player),
		Tasks:           make(map[string][]*Task),
		Events:          make(map[string][]string),
		ActionResults:   make(map[string]ActionResult),
		MovementHistory: make(map[string][]Movement),
		SightingHistory: make(map[string][]Sighting),
	}
}

// LoadState deserializes a state snapshot and reattaches the shared
// catalog. Used by replay tooling and tests.
func LoadState(data []byte, catalog *Catalog) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.catalog = catalog
	if s.Players == nil {
		s.Players = make(map[string]*Player)
	}
	if s.Tasks == nil {
		s.Tasks = make(map[string][]*Task)
	}
	if s.Events == nil {
		s.Events = make(map[string][]string)
	}
	if s.ActionResults == nil {
		s.ActionResults = make(map[string]ActionResult)
	}
	if s.MovementHistory == nil {
		s.MovementHistory = make(map[string][]Movement)
	}
	if s.SightingHistory == nil {
		s.SightingHistory = make(map[string][]Sighting)
	}
	return &s, nil
}

// AttachCatalog restores the shared catalog reference after deserialization.
func (s *State) AttachCatalog(c *Catalog) {
	s.catalog = c
}

// Catalog returns the shared rules catalog.
func (s *State) Catalog() *Catalog {
	return s.catalog
}

// PlayerIDs returns every seat id in lexicographic order. That order is
// the sole tie-break for same-phase conflicts.
func (s *State) PlayerIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AliveIDs returns living players in lexicographic order.
func (s *State) AliveIDs() []string {
	var ids []string
	for id, p := range s.Players {
		if p.Alive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// livingCounts returns the number of living impostors and crewmates.
func (s *State) livingCounts() (impostors, crewmates int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleImpostor {
			impostors++
		} else {
			crewmates++
		}
	}
	return impostors, crewmates
}

// PlayersInRoom returns living players in room, in lexicographic order.
func (s *State) PlayersInRoom(room string) []string {
	var ids []string
	for id, p := range s.Players {
		if p.Alive && p.Location == room {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// BodiesInRoom returns the owner ids of bodies lying in room, in
// discovery order (the order they were appended).
func (s *State) BodiesInRoom(room string) []string {
	var ids []string
	for _, b := range s.Bodies {
		if b.Location == room {
			ids = append(ids, b.PlayerID)
		}
	}
	return ids
}

// Teammates returns the other living-or-dead impostors of id, sorted.
func (s *State) Teammates(id string) []string {
	p, ok := s.Players[id]
	if !ok || p.Role != RoleImpostor {
		return nil
	}
	var out []string
	for other, op := range s.Players {
		if other != id && op.Role == RoleImpostor {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// GlobalTaskProgress is total crewmate task progress in [0, 1]. Impostor
// fake tasks never count; dead crewmates' tasks still do, which is why
// ghost task work matters.
func (s *State) GlobalTaskProgress() float64 {
	done, required := 0, 0
	for id, tasks := range s.Tasks {
		p, ok := s.Players[id]
		if !ok || p.Role != RoleCrewmate {
			continue
		}
		for _, t := range tasks {
			required += t.Required
			if t.Progress < t.Required {
				done += t.Progress
			} else {
				done += t.Required
			}
		}
	}
	if required == 0 {
		return 0
	}
	return float64(done) / float64(required)
}

// lightsOut reports whether a lights sabotage is blinding crewmates.
func (s *State) lightsOut() bool {
	return s.ActiveSabotage != nil && s.ActiveSabotage.Type == "lights"
}

// commsDown reports whether a comms sabotage is hiding task lists.
func (s *State) commsDown() bool {
	return s.ActiveSabotage != nil && s.ActiveSabotage.Type == "comms"
}

// blinded reports whether id currently sees no players and no bodies.
// Only crewmates are blinded, and only while lights are sabotaged.
func (s *State) blinded(id string) bool {
	p, ok := s.Players[id]
	return ok && p.Role == RoleCrewmate && s.lightsOut()
}

// pushEvent appends a per-player event line for this round.
func (s *State) pushEvent(id, text string) {
	s.Events[id] = append(s.Events[id], text)
}

// recordMovement appends a movement entry, trimming to the configured cap.
func (s *State) recordMovement(id, room string) {
	h := append(s.MovementHistory[id], Movement{Round: s.Round, Location: room})
	if limit := s.Config.MemoryMovementCap; limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	s.MovementHistory[id] = h
}

// recordSighting appends a sighting entry, trimming to the configured cap.
func (s *State) recordSighting(observer string, sighting Sighting) {
	h := append(s.SightingHistory[observer], sighting)
	if limit := s.Config.MemorySightingCap; limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	s.SightingHistory[observer] = h
}

// Copy returns a deep copy sharing only the immutable catalog.
func (s *State) Copy() *State {
	out := &State{
		Config:           s.Config,
		catalog:          s.catalog,
		Phase:            s.Phase,
		Round:            s.Round,
		Winner:           s.Winner,
		WinCause:         s.WinCause,
		SabotageCooldown: s.SabotageCooldown,
		Players:          make(map[string]*Player, len(s.Players)),
		Tasks:            make(map[string][]*Task, len(s.Tasks)),
		Events:           make(map[string][]string, len(s.Events)),
		ActionResults:    make(map[string]ActionResult, len(s.ActionResults)),
		MovementHistory:  make(map[string][]Movement, len(s.MovementHistory)),
		SightingHistory:  make(map[string][]Sighting, len(s.SightingHistory)),
	}
	for id, p := range s.Players {
		cp := *p
		out.Players[id] = &cp
	}
	for id, tasks := range s.Tasks {
		ts := make([]*Task, len(tasks))
		for i, t := range tasks {
			ct := *t
			ts[i] = &ct
		}
		out.Tasks[id] = ts
	}
	out.Bodies = append([]Body(nil), s.Bodies...)
	if s.ActiveSabotage != nil {
		cs := *s.ActiveSabotage
		cs.FixProgress = copyIntMap(s.ActiveSabotage.FixProgress)
		cs.FixRequired = copyIntMap(s.ActiveSabotage.FixRequired)
		out.ActiveSabotage = &cs
	}
	if s.MeetingContext != nil {
		mc := *s.MeetingContext
		out.MeetingContext = &mc
	}
	out.SpeakerOrder = append([]string(nil), s.SpeakerOrder...)
	out.ChatHistory = append([]ChatMessage(nil), s.ChatHistory...)
	for id, evs := range s.Events {
		out.Events[id] = append([]string(nil), evs...)
	}
	if s.AdminSnapshot != nil {
		out.AdminSnapshot = make(map[string]map[string]int, len(s.AdminSnapshot))
		for id, snap := range s.AdminSnapshot {
			out.AdminSnapshot[id] = copyIntMap(snap)
		}
	}
	for id, r := range s.ActionResults {
		out.ActionResults[id] = r
	}
	for id, h := range s.MovementHistory {
		out.MovementHistory[id] = append([]Movement(nil), h...)
	}
	for id, h := range s.SightingHistory {
		out.SightingHistory[id] = append([]Sighting(nil), h...)
	}
	out.MeetingHistory = make([]MeetingRecord, len(s.MeetingHistory))
	for i, m := range s.MeetingHistory {
		out.MeetingHistory[i] = copyMeetingRecord(m)
	}
	out.GameLog = make([]RoundLog, len(s.GameLog))
	for i, l := range s.GameLog {
		out.GameLog[i] = copyRoundLog(l)
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyMeetingRecord(m MeetingRecord) MeetingRecord {
	out := m
	out.Transcript = append([]ChatMessage(nil), m.Transcript...)
	out.Votes = make(map[string]string, len(m.Votes))
	for k, v := range m.Votes {
		out.Votes[k] = v
	}
	out.Tally = copyIntMap(m.Tally)
	return out
}

func copyRoundLog(l RoundLog) RoundLog {
	out := RoundLog{Round: l.Round}
	out.Actions = make(map[string]Action, len(l.Actions))
	for k, v := range l.Actions {
		out.Actions[k] = v
	}
	out.Results = make(map[string]ActionResult, len(l.Results))
	for k, v := range l.Results {
		out.Results[k] = v
	}
	return out
}
