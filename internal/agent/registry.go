// Package agent provides the built-in player policies: a seeded random
// baseline, a scripted rule-based fallback, and a Gemini-backed
// personality player. All of them implement game.Agent.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"skeld/internal/game"
)

// Spec names accepted by New. A gemini spec may carry a model suffix,
// e.g. "gemini:gemini-3-flash-preview".
const (
	SpecRandom    = "random"
	SpecRuleBased = "rulebased"
	SpecGemini    = "gemini"
)

// Options carries per-seat construction inputs. Seed drives the bot RNGs;
// Seat deals the personality card; APIKey is only read by gemini specs.
type Options struct {
	Seed   int64
	Seat   int
	APIKey string
	Logger *zap.Logger
}

// Known reports whether spec names a registered agent kind.
func Known(spec string) bool {
	name, _, _ := strings.Cut(spec, ":")
	switch name {
	case SpecRandom, SpecRuleBased, SpecGemini:
		return true
	}
	return false
}

// New builds an agent from its spec string.
func New(ctx context.Context, spec string, opts Options) (game.Agent, error) {
	name, model, _ := strings.Cut(spec, ":")
	switch name {
	case SpecRandom:
		return NewRandomBot(opts.Seed), nil
	case SpecRuleBased:
		return NewRuleBasedBot(opts.Seed), nil
	case SpecGemini:
		return NewPersonalityAgent(ctx, opts.APIKey, model, PersonalityFor(opts.Seat), opts.Logger)
	default:
		return nil, &game.ConfigError{
			Field: "agent",
			Msg:   fmt.Sprintf("unknown agent spec %q (known: random, rulebased, gemini[:model])", spec),
		}
	}
}
