package ai

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CommanderState is the coarse posture of the state-machine commander.
type CommanderState string

const (
	StateExpansion  CommanderState = "expansion"
	StateTech       CommanderState = "tech"
	StateAggression CommanderState = "aggression"
	StateDefense    CommanderState = "defense"
)

// TransitionRule moves the commander between postures when its condition
// holds. Conditions are expr programs over the Situation struct: declarative
// enough to tune without touching the commander, and strictly deterministic
// to evaluate.
type TransitionRule struct {
	From CommanderState
	To   CommanderState
	When string

	prog *vm.Program
}

// doctrine is the stock transition table, checked in order; the first
// matching rule wins. Defense outranks everything, which is why its rules
// sit on top.
var doctrine = []TransitionRule{
	{From: "", To: StateDefense, When: "ThreatLevel > 0.5"},
	{From: StateDefense, To: StateAggression, When: "ThreatLevel < 0.2 && MilitaryAdvantage > 0.2"},
	{From: StateDefense, To: StateExpansion, When: "ThreatLevel < 0.2"},
	{From: StateExpansion, To: StateAggression, When: "MilitaryAdvantage > 0.3 && Army >= 6"},
	{From: StateExpansion, To: StateTech, When: "EconomicSat > 0.8 && TechAdvantage < 0.0"},
	{From: StateTech, To: StateAggression, When: "TechAdvantage > 0.15 && Army >= 4"},
	{From: StateTech, To: StateExpansion, When: "Minerals < 100 && EconomicSat < 0.5"},
	{From: StateAggression, To: StateExpansion, When: "MilitaryAdvantage < -0.3"},
	{From: StateAggression, To: StateTech, When: "EnemyArmy == 0 && TechAdvantage < 0.0"},
}

func init() {
	for i := range doctrine {
		prog, err := expr.Compile(doctrine[i].When, expr.Env(Situation{}), expr.AsBool())
		if err != nil {
			panic(fmt.Sprintf("ai: bad doctrine rule %q: %v", doctrine[i].When, err))
		}
		doctrine[i].prog = prog
	}
}

// nextState evaluates the doctrine for the current posture. A rule with an
// empty From applies from any posture. Returns the current posture when no
// rule fires.
func nextState(current CommanderState, sit Situation) CommanderState {
	for _, r := range doctrine {
		if r.From != "" && r.From != current {
			continue
		}
		if r.To == current {
			continue
		}
		out, err := expr.Run(r.prog, sit)
		if err != nil {
			continue
		}
		if out.(bool) {
			return r.To
		}
	}
	return current
}

// stateForLabel maps a commander posture name stored in counter memory back
// to a CommanderState, for counter-strategy recall.
func stateForLabel(label string) (CommanderState, bool) {
	switch CommanderState(label) {
	case StateExpansion, StateTech, StateAggression, StateDefense:
		return CommanderState(label), true
	}
	return "", false
}
