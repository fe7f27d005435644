package ai

import (
	"sort"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// GoalKind names a strategic goal.
type GoalKind string

const (
	GoalDefend   GoalKind = "defend"
	GoalEconomy  GoalKind = "economy"
	GoalMilitary GoalKind = "military"
	GoalExpand   GoalKind = "expand"
	GoalAttack   GoalKind = "attack"
	GoalTech     GoalKind = "tech"
)

// Goal is a prioritized objective. Priority values, not fixed ranks, drive
// the ordering: a screaming threat outranks economy, but a mild one may not.
type Goal struct {
	Kind     GoalKind `json:"kind"`
	Priority float64  `json:"priority"`
}

// Step is one concrete, costed unit of work inside a plan.
type Step struct {
	Label    string     `json:"label"`
	Action   rts.Action `json:"-"`
	Cost     rts.Cost   `json:"cost"`
	EstTicks int        `json:"estTicks"`
	Done     bool       `json:"done"`
}

// Plan is an ordered step list derived from a goal set, with enough metadata
// to detect its own staleness. Plans are re-derived, never patched: a plan
// whose assumptions broke is cheaper to rebuild than to repair.
type Plan struct {
	Goals       []Goal   `json:"goals"`
	Steps       []Step   `json:"steps"`
	CreatedTick int      `json:"createdTick"`
	EstTotal    int      `json:"estTotalTicks"`
	TotalCost   rts.Cost `json:"totalCost"`

	next int
}

// scoreGoals turns a situation into a prioritized goal list.
func scoreGoals(sit Situation) []Goal {
	goals := []Goal{
		{GoalDefend, 1.0*sit.ThreatLevel + boolVal(sit.ThreatLevel > 0.5)*2.0},
		{GoalEconomy, 1.2 * (1 - sit.EconomicSat)},
		{GoalMilitary, 0.9 * (1 - clamp01(sit.MilitaryAdvantage+0.5))},
		{GoalExpand, 0.8 * boolVal(sit.CanExpand)},
		{GoalAttack, 0.7 * clamp01(sit.MilitaryAdvantage)},
		{GoalTech, 0.5 * clamp01(-sit.TechAdvantage+0.2)},
	}
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].Priority > goals[j].Priority })
	return goals
}

// BuildPlan expands the goal list for the situation into ordered, costed
// steps. The expansion consults the game only for concrete targets
// (buildings, rally points); the shape of the plan comes from the goals.
func BuildPlan(g *rts.Game, p, enemy rts.PlayerID, sit Situation) *Plan {
	cfg := g.Config()
	plan := &Plan{
		Goals:       scoreGoals(sit),
		CreatedTick: sit.Tick,
	}

	for _, goal := range plan.Goals {
		if goal.Priority <= 0 {
			continue
		}
		for _, s := range expandGoal(g, p, enemy, sit, goal.Kind, cfg) {
			// Steps the bank cannot plausibly fund stay out of the plan:
			// a plan born over the Stale resource line would be torn down
			// on the very next cycle and the planner would thrash.
			cum := plan.TotalCost.Add(s.Cost)
			if cum.Minerals > sit.Minerals*2 || cum.Gas > sit.Gas*2 {
				continue
			}
			plan.Steps = append(plan.Steps, s)
			plan.EstTotal += s.EstTicks
			plan.TotalCost = cum
		}
	}
	return plan
}

// expandGoal yields the concrete steps for one goal given what the player
// already has.
func expandGoal(g *rts.Game, p, enemy rts.PlayerID, sit Situation, kind GoalKind, cfg *rts.Config) []Step {
	var steps []Step
	switch kind {
	case GoalDefend:
		if home := ownRallyPoint(g, p); home != nil && sit.Army > 0 {
			steps = append(steps, Step{
				Label:    "rally defense",
				Action:   rts.ArmyAction{Stance: rts.StanceDefend, Target: *home},
				EstTicks: 60,
			})
		}
		if b := firstCompleteBuilding(g, p, rts.Barracks); b != nil {
			steps = append(steps, trainStep(b, rts.Soldier, cfg))
		}

	case GoalEconomy:
		if b := firstCompleteBuilding(g, p, rts.Base); b != nil {
			want := 2
			if sit.EconomicSat > 0.6 {
				want = 1
			}
			for i := 0; i < want; i++ {
				steps = append(steps, trainStep(b, rts.Worker, cfg))
			}
		}

	case GoalMilitary:
		if g.CountBuildings(p, rts.Barracks, false) == 0 {
			steps = append(steps, constructStep(g, p, rts.Barracks, cfg))
		}
		if b := firstCompleteBuilding(g, p, rts.Barracks); b != nil {
			steps = append(steps, trainStep(b, rts.Soldier, cfg))
			if f := firstCompleteBuilding(g, p, rts.Factory); f != nil {
				steps = append(steps, trainStep(f, rts.Tank, cfg))
			}
		}

	case GoalExpand:
		steps = append(steps, constructStep(g, p, rts.Base, cfg))

	case GoalAttack:
		if target := enemyRallyPoint(g, enemy); target != nil && sit.Army > 0 {
			steps = append(steps, Step{
				Label:    "launch attack",
				Action:   rts.ArmyAction{Stance: rts.StanceAttack, Target: *target},
				EstTicks: 300,
			})
		}

	case GoalTech:
		if g.CountBuildings(p, rts.Lab, false) == 0 {
			steps = append(steps, constructStep(g, p, rts.Lab, cfg))
		} else if g.CountBuildings(p, rts.Lab, true) > 0 && !g.Player(p).Research["combat_1"] {
			steps = append(steps, Step{
				Label:    "research combat_1",
				Action:   rts.ResearchAction{Tech: "combat_1"},
				Cost:     cfg.ResearchCost,
				EstTicks: cfg.ResearchTicks,
			})
		}
	}
	return steps
}

func trainStep(b *rts.Building, t rts.UnitType, cfg *rts.Config) Step {
	stats := cfg.Units[t]
	return Step{
		Label:    "train " + string(t),
		Action:   rts.TrainAction{Building: b.ID, Unit: t},
		Cost:     stats.Cost,
		EstTicks: stats.BuildTicks,
	}
}

func constructStep(g *rts.Game, p rts.PlayerID, t rts.BuildingType, cfg *rts.Config) Step {
	stats := cfg.Buildings[t]
	s := Step{
		Label:    "construct " + string(t),
		Cost:     stats.Cost,
		EstTicks: stats.BuildTicks,
	}
	if w := idleOrGatheringWorker(g, p); w != nil {
		s.Action = rts.ConstructAction{Worker: w.ID, Building: t, Pos: buildSite(g, p)}
	}
	return s
}

// NextStep returns the next unfinished step, or nil when the plan is spent.
func (p *Plan) NextStep() *Step {
	for p.next < len(p.Steps) {
		s := &p.Steps[p.next]
		if !s.Done {
			return s
		}
		p.next++
	}
	return nil
}

// MarkDone marks the current step finished.
func (p *Plan) MarkDone() {
	if p.next < len(p.Steps) {
		p.Steps[p.next].Done = true
		p.next++
	}
}

// remainingCost sums the cost of unfinished steps.
func (p *Plan) remainingCost() rts.Cost {
	var c rts.Cost
	for i := p.next; i < len(p.Steps); i++ {
		if !p.Steps[i].Done {
			c = c.Add(p.Steps[i].Cost)
		}
	}
	return c
}

// Stale reports whether the plan must be discarded: a critical threat it
// does not address, resources collapsed below half the remaining bill, or
// the clock blew past twice the estimate.
func (p *Plan) Stale(sit Situation) bool {
	if sit.ThreatLevel > 0.5 && !p.addresses(GoalDefend) {
		return true
	}
	rem := p.remainingCost()
	if p.next < len(p.Steps) {
		if sit.Minerals*2 < rem.Minerals || sit.Gas*2 < rem.Gas {
			return true
		}
	}
	if p.EstTotal > 0 && sit.Tick-p.CreatedTick > 2*p.EstTotal {
		return true
	}
	return false
}

func (p *Plan) addresses(kind GoalKind) bool {
	for _, g := range p.Goals {
		if g.Kind == kind && g.Priority > 0 {
			return true
		}
	}
	return false
}

// Planner owns the current plan for one AI player and rebuilds it when the
// situation invalidates it.
type Planner struct {
	plan *Plan
}

// Update refreshes the plan against the current situation and returns it.
// Resource starvation mid-plan is not an error here; it is exactly the
// rebuild trigger.
func (pl *Planner) Update(g *rts.Game, p, enemy rts.PlayerID, sit Situation) *Plan {
	if pl.plan == nil || pl.plan.Stale(sit) || pl.plan.NextStep() == nil {
		pl.plan = BuildPlan(g, p, enemy, sit)
	}
	return pl.plan
}

// Current returns the active plan, or nil before the first Update.
func (pl *Planner) Current() *Plan { return pl.plan }

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
