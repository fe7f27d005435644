package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// Suggestion is the weakly-typed override an external advisor may offer.
// The engine validates it before acting on it; an advisor never mutates
// state and a bad suggestion never ends a match.
type Suggestion struct {
	Order      string  `json:"order"`
	Target     string  `json:"target,omitempty"`
	UnitQty    int     `json:"unitQty,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Advisor produces suggestions from a situation summary. Implementations
// may be nondeterministic or slow; AdvisedStrategy contains the damage.
type Advisor interface {
	Suggest(ctx context.Context, sit Situation) (*Suggestion, error)
}

// DefaultMinConfidence is the floor below which suggestions are discarded.
const DefaultMinConfidence = 0.6

// DefaultAdvisorTimeout bounds how long a cycle waits on an advisor.
const DefaultAdvisorTimeout = 150 * time.Millisecond

// AdvisedStrategy wraps an inner strategy with an external advisor. Each
// cycle it asks the advisor first; a suggestion that validates (affordable,
// legal, confident enough) is used, anything else falls through to the inner
// strategy. The simulation stays deterministic relative to the command
// stream either way: the advisor only influences which commands get issued,
// and those commands travel the same ordered queue as everyone else's.
type AdvisedStrategy struct {
	inner         Strategy
	advisor       Advisor
	minConfidence float64
	timeout       time.Duration
}

// NewAdvisedStrategy wraps inner with advisor.
func NewAdvisedStrategy(inner Strategy, advisor Advisor) *AdvisedStrategy {
	return &AdvisedStrategy{
		inner:         inner,
		advisor:       advisor,
		minConfidence: DefaultMinConfidence,
		timeout:       DefaultAdvisorTimeout,
	}
}

func (a *AdvisedStrategy) Name() string { return "advised(" + a.inner.Name() + ")" }

// ObserveOutcome forwards to the inner strategy when it learns.
func (a *AdvisedStrategy) ObserveOutcome(won bool, opponentStrategy string) {
	if l, ok := a.inner.(Learner); ok {
		l.ObserveOutcome(won, opponentStrategy)
	}
}

// Decide consults the advisor, validates, and falls back.
func (a *AdvisedStrategy) Decide(g *rts.Game, p, enemy rts.PlayerID) []rts.Action {
	sit := Evaluate(g, p, enemy)

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	sug, err := a.advisor.Suggest(ctx, sit)
	if err != nil {
		log.Debug().Err(err).Int("player", int(p)).Msg("Advisor unavailable, using own scorer")
		return a.inner.Decide(g, p, enemy)
	}
	if sug == nil || sug.Confidence < a.minConfidence {
		log.Debug().Int("player", int(p)).Msg("Advisor suggestion below confidence floor")
		return a.inner.Decide(g, p, enemy)
	}

	action, ok := validateSuggestion(g, p, enemy, sit, sug)
	if !ok {
		log.Debug().Str("order", sug.Order).Int("player", int(p)).Msg("Advisor suggestion rejected by validation")
		return a.inner.Decide(g, p, enemy)
	}
	return []rts.Action{action}
}

// validateSuggestion maps a suggestion order onto a concrete legal action.
// The only accepted orders are ones the engine could have enumerated itself,
// so an accepted suggestion is affordable by construction.
func validateSuggestion(g *rts.Game, p, enemy rts.PlayerID, sit Situation, sug *Suggestion) (rts.Action, bool) {
	for _, c := range enumerate(g, p, enemy, sit) {
		if c.label == sug.Order {
			return c.action, true
		}
	}
	return nil, false
}
