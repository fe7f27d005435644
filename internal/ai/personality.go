package ai

import "github.com/lucylow/quaternion-sub009/pkg/rts"

// Archetype is a named commander temperament used to seed trait vectors.
type Archetype string

const (
	ArchetypeBerserker  Archetype = "berserker"
	ArchetypeEconomist  Archetype = "economist"
	ArchetypeTechnocrat Archetype = "technocrat"
	ArchetypeSentinel   Archetype = "sentinel"
	ArchetypeOpportunist Archetype = "opportunist"
)

var archetypes = []struct {
	name   Archetype
	traits Traits
}{
	{ArchetypeBerserker, Traits{Aggression: 0.85, RiskTolerance: 0.8, Patience: 0.2, Adaptability: 0.4}},
	{ArchetypeEconomist, Traits{Aggression: 0.25, RiskTolerance: 0.3, Patience: 0.8, Adaptability: 0.5}},
	{ArchetypeTechnocrat, Traits{Aggression: 0.35, RiskTolerance: 0.4, Patience: 0.75, Adaptability: 0.6}},
	{ArchetypeSentinel, Traits{Aggression: 0.2, RiskTolerance: 0.2, Patience: 0.7, Adaptability: 0.45}},
	{ArchetypeOpportunist, Traits{Aggression: 0.55, RiskTolerance: 0.6, Patience: 0.45, Adaptability: 0.8}},
}

// Traits is a commander's trait vector. All values live in [0,1].
type Traits struct {
	Aggression    float64 `json:"aggression"`
	RiskTolerance float64 `json:"riskTolerance"`
	Patience      float64 `json:"patience"`
	Adaptability  float64 `json:"adaptability"`
}

// Opponent strategy labels produced by Classify.
const (
	StratRush     = "rush"
	StratTech     = "tech_focus"
	StratEconomic = "economic_boom"
	StratTurtle   = "turtle"
	StratBalanced = "balanced"
)

// TraitDelta records one learning step's trait movement, for the evolution
// history log.
type TraitDelta struct {
	Tick       int     `json:"tick"`
	Aggression float64 `json:"aggression"`
	Risk       float64 `json:"risk"`
	WinRate    float64 `json:"winRate"`
}

// CommanderMemory is the explicit learning state: observed opponent
// strategies, counters that worked, and the rolling outcome window. Learning
// steps take a memory and return the next one; nothing mutates in place, so
// the layer is replayable in isolation.
type CommanderMemory struct {
	Observed map[string]int    `json:"observed"` // opponent strategy -> times seen
	Counters map[string]string `json:"counters"` // opponent strategy -> commander state that beat it
	Outcomes []bool            `json:"outcomes"` // rolling window, most recent last
}

// outcomeWindow is how many recent combat outcomes drive trait drift.
const outcomeWindow = 10

// maxTraitStep bounds how far one learning step can move a trait.
const maxTraitStep = 0.05

// Personality is one AI player's commander temperament plus its learned
// memory. Created once per AI at match start from the seed; traits move only
// through Learn.
type Personality struct {
	Archetype Archetype       `json:"archetype"`
	Traits    Traits          `json:"traits"`
	Memory    CommanderMemory `json:"memory"`
	History   []TraitDelta    `json:"history"`
}

// NewPersonality draws an archetype and jitters its trait vector from the
// given stream.
func NewPersonality(rng *rts.Rand) *Personality {
	a := archetypes[rng.Intn(len(archetypes))]
	jitter := func(v float64) float64 {
		return clamp01(v + rng.FloatRange(-0.1, 0.1))
	}
	return &Personality{
		Archetype: a.name,
		Traits: Traits{
			Aggression:    jitter(a.traits.Aggression),
			RiskTolerance: jitter(a.traits.RiskTolerance),
			Patience:      jitter(a.traits.Patience),
			Adaptability:  jitter(a.traits.Adaptability),
		},
		Memory: CommanderMemory{
			Observed: make(map[string]int),
			Counters: make(map[string]string),
		},
	}
}

// Classify names the opponent's apparent strategy from the situation
// differentials. Thresholds are coarse on purpose: the commander reacts to
// the shape of the opponent's play, not its exact numbers.
func Classify(sit Situation) string {
	switch {
	case sit.EnemyArmy >= 4 && sit.Tick < 3600 && sit.MilitaryAdvantage < -0.2:
		return StratRush
	case sit.TechAdvantage < -0.25:
		return StratTech
	case sit.EnemyBases > sit.Bases:
		return StratEconomic
	case sit.EnemyArmy > 0 && sit.ThreatLevel == 0 && sit.MilitaryAdvantage < 0:
		return StratTurtle
	default:
		return StratBalanced
	}
}

// Observe records one sighting of an opponent strategy and returns the next
// memory.
func Observe(mem CommanderMemory, strategy string) CommanderMemory {
	next := cloneMemory(mem)
	next.Observed[strategy]++
	return next
}

// Learn folds one combat outcome into the memory and produces both the next
// memory and the trait movement. If the commander won, the (opponent
// strategy -> own state) pairing is remembered as a counter for future
// encounters. Trait drift follows the rolling win rate in small bounded
// steps; this is the only mechanism that moves traits after creation.
func Learn(p *Personality, won bool, opponentStrategy, ownState string, tick int) (CommanderMemory, TraitDelta) {
	next := cloneMemory(p.Memory)

	next.Outcomes = append(next.Outcomes, won)
	if len(next.Outcomes) > outcomeWindow {
		next.Outcomes = next.Outcomes[len(next.Outcomes)-outcomeWindow:]
	}
	if won && opponentStrategy != "" {
		next.Counters[opponentStrategy] = ownState
	}

	wins := 0
	for _, w := range next.Outcomes {
		if w {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(next.Outcomes))

	// Winning commanders lean in; losing commanders pull back. Adaptability
	// scales how hard the lesson lands.
	drive := (winRate - 0.5) * 2 * p.Traits.Adaptability
	delta := TraitDelta{
		Tick:       tick,
		Aggression: clampStep(drive * maxTraitStep),
		Risk:       clampStep(drive * maxTraitStep * 0.6),
		WinRate:    winRate,
	}
	return next, delta
}

// Apply moves the personality to the post-learning state.
func (p *Personality) Apply(mem CommanderMemory, delta TraitDelta) {
	p.Memory = mem
	p.Traits.Aggression = clamp01(p.Traits.Aggression + delta.Aggression)
	p.Traits.RiskTolerance = clamp01(p.Traits.RiskTolerance + delta.Risk)
	p.History = append(p.History, delta)
}

// Counter returns the remembered counter state for an opponent strategy, if
// one was ever recorded.
func (p *Personality) Counter(opponentStrategy string) (string, bool) {
	c, ok := p.Memory.Counters[opponentStrategy]
	return c, ok
}

func cloneMemory(mem CommanderMemory) CommanderMemory {
	next := CommanderMemory{
		Observed: make(map[string]int, len(mem.Observed)),
		Counters: make(map[string]string, len(mem.Counters)),
		Outcomes: append([]bool(nil), mem.Outcomes...),
	}
	for k, v := range mem.Observed {
		next.Observed[k] = v
	}
	for k, v := range mem.Counters {
		next.Counters[k] = v
	}
	return next
}

func clampStep(v float64) float64 {
	if v > maxTraitStep {
		return maxTraitStep
	}
	if v < -maxTraitStep {
		return -maxTraitStep
	}
	return v
}
