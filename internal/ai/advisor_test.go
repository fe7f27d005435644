package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

type stubAdvisor struct {
	sug   *Suggestion
	err   error
	calls int
}

func (s *stubAdvisor) Suggest(ctx context.Context, sit Situation) (*Suggestion, error) {
	s.calls++
	return s.sug, s.err
}

// countingStrategy records fallback invocations.
type countingStrategy struct {
	inner   Strategy
	decided int
}

func (c *countingStrategy) Name() string { return c.inner.Name() }

func (c *countingStrategy) Decide(g *rts.Game, p, enemy rts.PlayerID) []rts.Action {
	c.decided++
	return c.inner.Decide(g, p, enemy)
}

func TestAdvisedStrategy_AcceptsValidSuggestion(t *testing.T) {
	g := skirmish(t, 31)
	adv := &stubAdvisor{sug: &Suggestion{Order: "train_worker", Confidence: 0.95}}
	inner := &countingStrategy{inner: NewScoredStrategy(1)}
	s := NewAdvisedStrategy(inner, adv)

	actions := s.Decide(g, 1, 2)
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	ta, ok := actions[0].(rts.TrainAction)
	if !ok || ta.Unit != rts.Worker {
		t.Errorf("suggestion produced %#v, want a worker train order", actions[0])
	}
	if inner.decided != 0 {
		t.Error("inner strategy consulted despite an accepted suggestion")
	}
}

func TestAdvisedStrategy_FallsBackOnError(t *testing.T) {
	g := skirmish(t, 32)
	adv := &stubAdvisor{err: errors.New("connection refused")}
	inner := &countingStrategy{inner: NewScoredStrategy(1)}
	s := NewAdvisedStrategy(inner, adv)

	if actions := s.Decide(g, 1, 2); len(actions) == 0 {
		t.Error("fallback produced no actions in the opening position")
	}
	if inner.decided != 1 {
		t.Errorf("inner strategy consulted %d times, want 1", inner.decided)
	}
}

func TestAdvisedStrategy_RejectsLowConfidence(t *testing.T) {
	g := skirmish(t, 33)
	adv := &stubAdvisor{sug: &Suggestion{Order: "train_worker", Confidence: 0.59}}
	inner := &countingStrategy{inner: NewScoredStrategy(1)}
	s := NewAdvisedStrategy(inner, adv)

	s.Decide(g, 1, 2)
	if inner.decided != 1 {
		t.Error("suggestion below the confidence floor was not discarded")
	}
}

func TestAdvisedStrategy_RejectsUnknownOrder(t *testing.T) {
	g := skirmish(t, 34)
	// Confident but nonsense: the order maps to nothing the scorer could
	// have enumerated, so validation must throw it out.
	adv := &stubAdvisor{sug: &Suggestion{Order: "nuke_everything", Confidence: 0.99}}
	inner := &countingStrategy{inner: NewScoredStrategy(1)}
	s := NewAdvisedStrategy(inner, adv)

	s.Decide(g, 1, 2)
	if inner.decided != 1 {
		t.Error("unenumerable order was not rejected")
	}
}

func TestAdvisedStrategy_RejectsUnaffordableOrder(t *testing.T) {
	g := skirmish(t, 35)
	g.Player(1).Balances[rts.Minerals] = 0

	// train_worker is a real order, but with an empty bank the scorer never
	// enumerates it, so the suggestion cannot validate.
	adv := &stubAdvisor{sug: &Suggestion{Order: "train_worker", Confidence: 0.9}}
	inner := &countingStrategy{inner: NewScoredStrategy(1)}
	s := NewAdvisedStrategy(inner, adv)

	for _, a := range s.Decide(g, 1, 2) {
		if ta, ok := a.(rts.TrainAction); ok && ta.Unit == rts.Worker {
			t.Fatal("unaffordable worker train order slipped through validation")
		}
	}
	if inner.decided != 1 {
		t.Error("validation did not fall back to the inner strategy")
	}
}

func TestAdvisedStrategy_ForwardsOutcomes(t *testing.T) {
	c := NewCommanderStrategy(0, NewPersonality(rts.NewRand(36)))
	s := NewAdvisedStrategy(c, &stubAdvisor{})

	s.ObserveOutcome(true, StratRush)
	if _, ok := c.Personality().Counter(StratRush); !ok {
		t.Error("win against a rush did not reach the learner")
	}
}
