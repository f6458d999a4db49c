package game

import (
	"errors"
	"fmt"
)

// ErrGameOver is returned when Run is called on an engine whose game has
// already finished.
var ErrGameOver = errors.New("game is already over")

// ErrBadOutput marks an agent reply the caller could not interpret. The
// engine substitutes the default action and the game plays on.
var ErrBadOutput = errors.New("unintelligible agent output")

// ConfigError marks an invalid catalog or ruleset. It fails a game before
// it starts and surfaces as a non-zero CLI exit.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Msg
	}
	return fmt.Sprintf("invalid config (%s): %s", e.Field, e.Msg)
}

// InvariantError marks a broken resolver invariant. It is fatal for the
// game in which it occurs: the engine aborts with a diagnostic instead of
// patching state.
type InvariantError struct {
	Round int
	Check string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at round %d: %s", e.Round, e.Check)
}

func invariantf(round int, format string, args ...any) *InvariantError {
	return &InvariantError{Round: round, Check: fmt.Sprintf(format, args...)}
}
