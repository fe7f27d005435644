package ai

import "github.com/lucylow/quaternion-sub009/pkg/rts"

// Strategy generates actions for an AI player each evaluation cycle. A
// strategy must only emit actions the simulation would accept: affordability
// and legality are checked before emission, never discovered by rejection.
type Strategy interface {
	Name() string
	Decide(g *rts.Game, p, enemy rts.PlayerID) []rts.Action
}

// Learner is implemented by strategies that adapt from combat outcomes.
// Use a type assertion to check.
type Learner interface {
	ObserveOutcome(won bool, opponentStrategy string)
}

// ForDifficulty returns the strategy for a difficulty level. seed feeds the
// strategy's private random stream; two AIs built from the same seed make
// the same choices.
func ForDifficulty(difficulty string, seed int64) Strategy {
	switch difficulty {
	case "medium":
		return NewCommanderStrategy(mediumCooldownTicks, nil)
	case "hard":
		return NewCommanderStrategy(hardCooldownTicks, NewPersonality(rts.NewRand(seed)))
	default:
		// The easy tier deliberately plays below its ceiling.
		s := NewScoredStrategy(seed)
		s.mistake = easyMistakeChance
		return s
	}
}
