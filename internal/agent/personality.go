package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"skeld/internal/game"
)

// DefaultGeminiModel is used when an agent spec names no model.
const DefaultGeminiModel = "gemini-3-flash-preview"

// Personalities are the character cards dealt to Gemini seats. The card
// text goes verbatim into the system prompt.
var Personalities = []string{
	"The Analytical Detective: Logical, tracks everyone's movements, asks for locations, very suspicious of alibis that don't add up.",
	"The Quiet Worker: Focused on tasks, stays out of drama, only speaks when they have hard evidence, tends to follow others for safety.",
	"The Aggressive Accuser: Quick to point fingers, uses strong language, 'loud' in meetings, often focuses on the first person they see near a body.",
	"The Paranoic Survivor: Terrified of being alone, constantly checks who is around, reports even slight 'sus' behavior, very defensive.",
	"The Strategic Deceiver (if Impostor): Calculated, builds trust by helping with sabotages, creates complex alibis involving multiple rooms.",
	"The Friendly Team-Player: Highly cooperative, encourages others to stay together, shares their location frequently, trusts others easily.",
	"The Chaotic Wildcard: Unpredictable, might vote randomly, makes strange jokes in meetings, moves in unusual patterns.",
}

// PersonalityFor deals a personality card by seat index.
func PersonalityFor(seat int) string {
	return Personalities[seat%len(Personalities)]
}

// PersonalityAgent plays through the Gemini API in character. Task-phase
// replies are parsed with ExtractJSON; unparseable replies surface as
// ErrBadOutput and API errors propagate as-is, so the engine applies its
// own downgrade either way.
type PersonalityAgent struct {
	client      *genai.Client
	model       string
	personality string
	logger      *zap.Logger

	id   string
	role game.Role
}

// NewPersonalityAgent dials the Gemini API. The key comes from the
// caller (usually the GEMINI_API_KEY environment variable).
func NewPersonalityAgent(ctx context.Context, apiKey, model, personality string, logger *zap.Logger) (*PersonalityAgent, error) {
	if apiKey == "" {
		return nil, &game.ConfigError{Field: "api_key", Msg: "gemini agents need GEMINI_API_KEY"}
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &PersonalityAgent{client: client, model: model, personality: personality, logger: logger}, nil
}

func (a *PersonalityAgent) Init(ctx context.Context, start game.GameStartConfig) error {
	a.id = start.YourID
	a.role = start.YourRole
	return nil
}

func (a *PersonalityAgent) systemPrompt() string {
	return fmt.Sprintf(`You are playing 'Among Us' as %s, a %s.
PERSONALITY: %s

RULES:
- Crewmates win by completing all tasks or ejecting all impostors.
- Impostors win by killing crewmates or critical sabotage.
- Movement takes 1 round.
- Action Model: resolve movement -> resolve kills -> resolve tasks -> resolve reports.

STRATEGY:
- If Crewmate: prioritize tasks. If you see a body, report it.
- If Impostor: you must be in the SAME room as someone to kill them. Predict their movement.
- DISCUSSION: Be logical. If there are 4 or 5 players left, SKIPPING is dangerous. Vote for the most suspicious person.
- GHOSTS: If you are dead, your ONLY goal is to move to your task locations and finish them.

RESPONSE FORMAT:
- During TASK phase: Respond with a JSON object like {"action": "move", "target": "Admin"} or {"action": "do_task", "target": "task_id"}.
- During DISCUSSION: Respond with plain text conversational message.
- During VOTING: Respond with player ID or "skip".`, a.id, a.role, a.personality)
}

func (a *PersonalityAgent) DecideAction(ctx context.Context, obs *game.Observation) (game.Action, error) {
	var ghostNote string
	if obs != nil && obs.AvailableActions == nil {
		ghostNote = "\nNOTE: You are a GHOST (dead). You can still help your team by moving to task locations and doing tasks. You are invisible to living players."
	}
	user := fmt.Sprintf("CURRENT OBSERVATION:\n%s%s\n\nWhat is your next action? Respond ONLY with JSON.\n- If doing a task, use the EXACT 'ID' provided.\n- If moving, pick a DIFFERENT adjacent room than your current one.\n- If Impostor and someone is alone with you, consider 'kill'.",
		game.FormatObservation(obs), ghostNote)
	reply, err := a.generate(ctx, user)
	if err != nil {
		return game.Wait(), err
	}
	var action game.Action
	if err := ExtractJSON(reply, &action); err != nil {
		a.logger.Debug("unparseable action reply",
			zap.String("player", a.id), zap.String("reply", reply), zap.Error(err))
		return game.Wait(), fmt.Errorf("%w: %v", game.ErrBadOutput, err)
	}
	return action, nil
}

func (a *PersonalityAgent) Discuss(ctx context.Context, obs *game.Observation) (string, error) {
	user := fmt.Sprintf("MEETING CONTEXT: %s\n\nCHAT HISTORY:\n%s\n\nIt is your turn to speak. Be concise and stay in character.",
		meetingLine(obs), chatLines(obs))
	return a.generate(ctx, user)
}

func (a *PersonalityAgent) Vote(ctx context.Context, obs *game.Observation) (string, error) {
	user := fmt.Sprintf("CHAT HISTORY:\n%s\n\nWho do you vote for? Respond with Player ID or 'skip'.", chatLines(obs))
	reply, err := a.generate(ctx, user)
	if err != nil {
		return "", err
	}
	return cleanVote(reply), nil
}

func (a *PersonalityAgent) Finish(ctx context.Context, result *game.Result) error {
	return nil
}

// generate runs one model call under the agent's system prompt. The
// caller's ctx carries the per-decision deadline.
func (a *PersonalityAgent) generate(ctx context.Context, user string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(a.systemPrompt(), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", a.model, err)
	}
	return resp.Text(), nil
}

func meetingLine(obs *game.Observation) string {
	if obs == nil || obs.MeetingContext == nil {
		return "unknown"
	}
	mc := obs.MeetingContext
	line := fmt.Sprintf("%s called by %s", mc.Trigger, mc.Caller)
	if mc.BodyFound != "" {
		line += fmt.Sprintf(" (body of %s found in %s)", mc.BodyFound, mc.BodyLocation)
	}
	return line
}

func chatLines(obs *game.Observation) string {
	if obs == nil || len(obs.ChatHistory) == 0 {
		return "(no messages yet)"
	}
	lines := make([]string, 0, len(obs.ChatHistory))
	for _, m := range obs.ChatHistory {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Speaker, m.Message))
	}
	return strings.Join(lines, "\n")
}

// cleanVote reduces a free-form reply to its final token, dequoted. The
// engine still sanitizes anything that is not a living player's id.
func cleanVote(reply string) string {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return game.VoteSkip
	}
	vote := strings.Trim(fields[len(fields)-1], "\"'`.")
	if vote == "" {
		return game.VoteSkip
	}
	return vote
}
