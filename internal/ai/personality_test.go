package ai

import (
	"testing"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

func TestNewPersonality_Deterministic(t *testing.T) {
	a := NewPersonality(rts.NewRand(77))
	b := NewPersonality(rts.NewRand(77))
	if a.Archetype != b.Archetype {
		t.Fatalf("archetypes differ: %s vs %s", a.Archetype, b.Archetype)
	}
	if a.Traits != b.Traits {
		t.Fatalf("traits differ: %+v vs %+v", a.Traits, b.Traits)
	}
}

func TestNewPersonality_TraitsInRange(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		p := NewPersonality(rts.NewRand(seed))
		for name, v := range map[string]float64{
			"aggression": p.Traits.Aggression,
			"risk":       p.Traits.RiskTolerance,
			"patience":   p.Traits.Patience,
			"adapt":      p.Traits.Adaptability,
		} {
			if v < 0 || v > 1 {
				t.Errorf("seed %d: trait %s out of range: %v", seed, name, v)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sit  Situation
		want string
	}{
		{"early army flood is a rush", Situation{Tick: 1200, EnemyArmy: 6, MilitaryAdvantage: -0.6}, StratRush},
		{"research lead is tech focus", Situation{Tick: 9000, TechAdvantage: -0.4}, StratTech},
		{"more bases is economic boom", Situation{Tick: 9000, Bases: 1, EnemyBases: 2}, StratEconomic},
		{"passive army is turtling", Situation{Tick: 9000, EnemyArmy: 5, MilitaryAdvantage: -0.1}, StratTurtle},
		{"nothing notable is balanced", Situation{Tick: 9000}, StratBalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sit); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLearn_WinRecordsCounter(t *testing.T) {
	p := NewPersonality(rts.NewRand(1))
	mem, delta := Learn(p, true, StratRush, string(StateDefense), 500)
	p.Apply(mem, delta)

	counter, ok := p.Counter(StratRush)
	if !ok {
		t.Fatal("winning outcome did not record a counter")
	}
	if counter != string(StateDefense) {
		t.Errorf("counter = %s, want defense", counter)
	}
}

func TestLearn_LossRecordsNoCounter(t *testing.T) {
	p := NewPersonality(rts.NewRand(1))
	mem, delta := Learn(p, false, StratRush, string(StateAggression), 500)
	p.Apply(mem, delta)
	if _, ok := p.Counter(StratRush); ok {
		t.Error("losing outcome recorded a counter")
	}
}

func TestLearn_TraitDriftBoundedAndClamped(t *testing.T) {
	p := NewPersonality(rts.NewRand(9))
	for i := 0; i < 200; i++ {
		mem, delta := Learn(p, true, StratBalanced, string(StateAggression), i)
		if delta.Aggression > maxTraitStep || delta.Aggression < -maxTraitStep {
			t.Fatalf("step %d exceeds bound: %v", i, delta.Aggression)
		}
		p.Apply(mem, delta)
		if p.Traits.Aggression < 0 || p.Traits.Aggression > 1 {
			t.Fatalf("aggression escaped [0,1]: %v", p.Traits.Aggression)
		}
	}
	if len(p.History) != 200 {
		t.Errorf("history log has %d entries, want 200", len(p.History))
	}
}

func TestLearn_OutcomeWindowRolls(t *testing.T) {
	p := NewPersonality(rts.NewRand(2))
	for i := 0; i < outcomeWindow+5; i++ {
		mem, delta := Learn(p, i%2 == 0, "", "", i)
		p.Apply(mem, delta)
	}
	if got := len(p.Memory.Outcomes); got != outcomeWindow {
		t.Errorf("window holds %d outcomes, want %d", got, outcomeWindow)
	}
}

func TestLearn_DoesNotMutateInputMemory(t *testing.T) {
	p := NewPersonality(rts.NewRand(3))
	before := len(p.Memory.Outcomes)
	Learn(p, true, StratRush, string(StateDefense), 10)
	if len(p.Memory.Outcomes) != before {
		t.Error("Learn mutated the personality's memory before Apply")
	}
	if _, ok := p.Memory.Counters[StratRush]; ok {
		t.Error("Learn wrote a counter into live memory before Apply")
	}
}

func TestObserve_CountsSightings(t *testing.T) {
	p := NewPersonality(rts.NewRand(4))
	mem := p.Memory
	for i := 0; i < 3; i++ {
		mem = Observe(mem, StratTurtle)
	}
	if mem.Observed[StratTurtle] != 3 {
		t.Errorf("observed count = %d, want 3", mem.Observed[StratTurtle])
	}
}
