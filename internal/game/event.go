package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeGameStart
	EventTypeRoundResolved
	EventTypeKill
	EventTypeSabotageStarted
	EventTypeSabotageFixed
	EventTypeMeetingCalled
	EventTypeEjection
	EventTypeGameOver
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the envelope written to the event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic per log
	Round     int       `json:"round"`
	GameID    string    `json:"game_id"` // Source game (for rate limiting)
	Payload   []byte    `json:"payload"` // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeGameStart:
		return "game_start"
	case EventTypeRoundResolved:
		return "round_resolved"
	case EventTypeKill:
		return "kill"
	case EventTypeSabotageStarted:
		return "sabotage_started"
	case EventTypeSabotageFixed:
		return "sabotage_fixed"
	case EventTypeMeetingCalled:
		return "meeting_called"
	case EventTypeEjection:
		return "ejection"
	case EventTypeGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// GameStartPayload describes the opening deal of a game.
type GameStartPayload struct {
	GameID       string   `json:"game_id"`
	Seed         int64    `json:"seed"`
	Players      []string `json:"players"`
	NumImpostors int      `json:"num_impostors"`
}

// RoundResolvedPayload summarizes the board after one resolver pass.
type RoundResolvedPayload struct {
	Round        int     `json:"round"`
	Phase        Phase   `json:"phase"`
	AliveCrew    int     `json:"alive_crewmates"`
	AliveImps    int     `json:"alive_impostors"`
	TaskProgress float64 `json:"task_progress"`
}

// KillPayload contains kill event details
type KillPayload struct {
	KillerID string `json:"killer_id"`
	VictimID string `json:"victim_id"`
	Location string `json:"location"`
}

// SabotagePayload covers sabotage start and fix events.
type SabotagePayload struct {
	SabotageType string `json:"sabotage_type"`
	Critical     bool   `json:"critical"`
	Countdown    int    `json:"countdown,omitempty"`
}

// MeetingPayload contains meeting call details.
type MeetingPayload struct {
	Trigger   MeetingTrigger `json:"trigger"`
	Caller    string         `json:"caller"`
	BodyFound string         `json:"body_found,omitempty"`
}

// EjectionPayload contains the outcome of a meeting vote.
type EjectionPayload struct {
	PlayerID     string `json:"player_id"`
	RoleRevealed string `json:"role_revealed,omitempty"`
}

// GameOverPayload contains the final verdict.
type GameOverPayload struct {
	Winner     string `json:"winner"`
	Cause      string `json:"cause"`
	FinalRound int    `json:"final_round"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, round int, gameID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Round:     round,
		GameID:    gameID,
		Payload:   EncodePayload(payload),
	}
}
