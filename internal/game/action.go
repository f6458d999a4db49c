package game

// ActionType labels what a player tries to do in one round.
type ActionType string

const (
	ActionMove          ActionType = "move"
	ActionDoTask        ActionType = "do_task"
	ActionFakeTask      ActionType = "fake_task"
	ActionKill          ActionType = "kill"
	ActionReport        ActionType = "report"
	ActionCallEmergency ActionType = "call_emergency"
	ActionSabotage      ActionType = "sabotage"
	ActionFixSabotage   ActionType = "fix_sabotage"
	ActionUseAdmin      ActionType = "use_admin"
	ActionWait          ActionType = "wait"
)

// validActionTypes gates malformed agent output.
var validActionTypes = map[ActionType]bool{
	ActionMove: true, ActionDoTask: true, ActionFakeTask: true,
	ActionKill: true, ActionReport: true, ActionCallEmergency: true,
	ActionSabotage: true, ActionFixSabotage: true, ActionUseAdmin: true,
	ActionWait: true,
}

// Action is what an agent submits for one round. Target is the room for
// move, the task id for do_task, the victim id for kill, and the sabotage
// type for sabotage; the remaining actions ignore it.
type Action struct {
	Type   ActionType `json:"action"`
	Target string     `json:"target,omitempty"`
}

// Wait is the safe default applied on timeouts, crashes, and bad output.
func Wait() Action {
	return Action{Type: ActionWait}
}

// Known reports whether the action label is one of the ten valid labels.
func (a Action) Known() bool {
	return validActionTypes[a.Type]
}

// ActionResult reports the validation and execution outcome of one
// player's action. Reason is set only on failure.
type ActionResult struct {
	Action  ActionType `json:"action"`
	Target  string     `json:"target,omitempty"`
	Success bool       `json:"success"`
	Reason  string     `json:"reason,omitempty"`
}

func successResult(a Action) ActionResult {
	return ActionResult{Action: a.Type, Target: a.Target, Success: true}
}

func failedResult(a Action, reason string) ActionResult {
	return ActionResult{Action: a.Type, Target: a.Target, Success: false, Reason: reason}
}
