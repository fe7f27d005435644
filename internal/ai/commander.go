package ai

import "github.com/lucylow/quaternion-sub009/pkg/rts"

// Transition cooldowns: how long a commander commits to a posture before
// re-evaluating. Harder commanders reconsider sooner.
const (
	mediumCooldownTicks = 900
	hardCooldownTicks   = 450
)

// CommanderStrategy layers a posture state machine over the utility scorer:
// the posture re-weights the scorer's candidates, so the commander still
// only ever emits legal, affordable actions. With a Personality attached it
// also classifies the opponent, recalls counters, and learns from combat
// outcomes.
type CommanderStrategy struct {
	cooldown    int
	state       CommanderState
	lastChange  int
	personality *Personality
}

// NewCommanderStrategy creates a commander. personality may be nil for the
// non-learning tier; randomness lives in the personality, the posture
// machine itself is a pure function of the situation.
func NewCommanderStrategy(cooldown int, personality *Personality) *CommanderStrategy {
	return &CommanderStrategy{
		cooldown:    cooldown,
		state:       StateExpansion,
		personality: personality,
	}
}

func (c *CommanderStrategy) Name() string {
	if c.personality != nil {
		return "commander+" + string(c.personality.Archetype)
	}
	return "commander"
}

// State exposes the current posture, for events and tests.
func (c *CommanderStrategy) State() CommanderState { return c.state }

// Personality exposes the attached personality, or nil.
func (c *CommanderStrategy) Personality() *Personality { return c.personality }

// stateWeights re-weight utility candidates per posture. Labels not listed
// keep weight 1.
var stateWeights = map[CommanderState]map[string]float64{
	StateExpansion: {
		"train_worker":   1.8,
		"construct_base": 2.0,
		"attack":         0.4,
	},
	StateTech: {
		"construct_lab":     2.0,
		"research":          2.0,
		"construct_factory": 1.6,
		"construct_airpad":  1.4,
		"attack":            0.5,
	},
	StateAggression: {
		"train_soldier":      1.6,
		"train_tank":         1.6,
		"train_air":          1.5,
		"construct_barracks": 1.5,
		"attack":             2.0,
		"train_worker":       0.5,
		"defend":             0.4,
	},
	StateDefense: {
		"defend":             2.2,
		"train_soldier":      1.7,
		"train_tank":         1.5,
		"construct_barracks": 1.4,
		"attack":             0.3,
		"construct_base":     0.4,
	},
}

// Decide runs one evaluation cycle: observe, maybe transition, then emit the
// best production action and the best army action under the posture's
// weights.
func (c *CommanderStrategy) Decide(g *rts.Game, p, enemy rts.PlayerID) []rts.Action {
	sit := Evaluate(g, p, enemy)

	opponent := ""
	if c.personality != nil {
		opponent = Classify(sit)
		c.personality.Memory = Observe(c.personality.Memory, opponent)
	}

	if sit.Tick-c.lastChange >= c.cooldown {
		next := nextState(c.state, sit)
		// A remembered counter for the opponent's current strategy overrides
		// the doctrine: a commander runs what it knows already beat this.
		if c.personality != nil && opponent != "" {
			if counter, ok := c.personality.Counter(opponent); ok {
				if st, valid := stateForLabel(counter); valid {
					next = st
				}
			}
		}
		if next != c.state {
			c.state = next
			c.lastChange = sit.Tick
		}
	}

	cands := enumerate(g, p, enemy, sit)
	if len(cands) == 0 {
		return nil
	}
	for i := range cands {
		cands[i].score *= c.weightFor(cands[i].label)
	}

	var actions []rts.Action
	if best := pickBest(cands, false); best != nil {
		actions = append(actions, best.action)
	}
	if best := pickBest(cands, true); best != nil {
		actions = append(actions, best.action)
	}
	return actions
}

// weightFor applies the posture weight scaled by traits: aggression leans
// harder into attack weights, risk tolerance tempers defense.
func (c *CommanderStrategy) weightFor(label string) float64 {
	w, ok := stateWeights[c.state][label]
	if !ok {
		w = 1
	}
	if c.personality == nil {
		return w
	}
	t := c.personality.Traits
	switch label {
	case "attack":
		w *= 0.5 + t.Aggression
	case "defend":
		w *= 1.5 - t.RiskTolerance*0.5
	case "train_worker", "construct_base":
		w *= 0.5 + t.Patience
	}
	return w
}

// ObserveOutcome implements Learner: fold a combat outcome into the
// personality via the explicit memory-passing learning step.
func (c *CommanderStrategy) ObserveOutcome(won bool, opponentStrategy string) {
	if c.personality == nil {
		return
	}
	mem, delta := Learn(c.personality, won, opponentStrategy, string(c.state), c.lastChange)
	c.personality.Apply(mem, delta)
}

// pickBest returns the highest-weighted candidate, army actions or
// everything else. Ties keep the earlier candidate; enumeration order is
// fixed.
func pickBest(cands []candidate, army bool) *candidate {
	var best *candidate
	for i := range cands {
		isArmy := cands[i].label == "attack" || cands[i].label == "defend"
		if isArmy != army {
			continue
		}
		if best == nil || cands[i].score > best.score {
			best = &cands[i]
		}
	}
	return best
}
