package ai

import (
	"math"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// ScoredStrategy is the reactive utility scorer: enumerate the legal actions
// in a fixed order, score each with a hand-tuned heuristic, take the
// maximum. It carries no state between cycles, which also makes it the
// fallback tier when an advisor or a learning layer misbehaves.
type ScoredStrategy struct {
	rng     *rts.Rand
	mistake float64 // chance per cycle of playing the runner-up instead of the best
}

// easyMistakeChance is the blunder rate of the easy tier. The draw comes
// from the strategy's seeded stream, so a given seed always blunders on the
// same cycles.
const easyMistakeChance = 0.15

// NewScoredStrategy creates the scorer with its own random stream. The
// stream is only used for deliberate imperfection (skipping the best action
// occasionally at easy difficulty); scoring itself is deterministic.
func NewScoredStrategy(seed int64) *ScoredStrategy {
	return &ScoredStrategy{rng: rts.NewRand(seed)}
}

func (s *ScoredStrategy) Name() string { return "scored" }

type candidate struct {
	action rts.Action
	score  float64
	label  string
}

// Decide scores the affordable actions and returns the best one, unless a
// mistake draw swaps in the runner-up. Ties break to the first enumerated
// candidate; enumeration order is fixed, so the break is stable.
func (s *ScoredStrategy) Decide(g *rts.Game, p, enemy rts.PlayerID) []rts.Action {
	sit := Evaluate(g, p, enemy)
	cands := enumerate(g, p, enemy, sit)
	if len(cands) == 0 {
		return nil
	}

	best, second := 0, -1
	for i := 1; i < len(cands); i++ {
		switch {
		case cands[i].score > cands[best].score:
			second = best
			best = i
		case second == -1 || cands[i].score > cands[second].score:
			second = i
		}
	}
	pick := best
	if s.mistake > 0 && second >= 0 && s.rng.Float64() < s.mistake {
		pick = second
	}
	return []rts.Action{cands[pick].action}
}

// enumerate lists every action the player could legally issue right now,
// scored. Unaffordable actions are never candidates: the AI must not learn
// about its budget from command rejections.
func enumerate(g *rts.Game, p, enemy rts.PlayerID, sit Situation) []candidate {
	cfg := g.Config()
	pl := g.Player(p)
	var cands []candidate

	// Train worker: diminishing returns as saturation approaches.
	if b := firstCompleteBuilding(g, p, rts.Base); b != nil && pl.CanAfford(cfg.Units[rts.Worker].Cost) {
		score := 0.9 * (1 - sit.EconomicSat*sit.EconomicSat)
		cands = append(cands, candidate{
			action: rts.TrainAction{Building: b.ID, Unit: rts.Worker},
			score:  score,
			label:  "train_worker",
		})
	}

	// Train military, by production building.
	for _, tc := range []struct {
		unit rts.UnitType
		at   rts.BuildingType
		base float64
	}{
		{rts.Soldier, rts.Barracks, 0.6},
		{rts.Tank, rts.Factory, 0.7},
		{rts.Air, rts.Airpad, 0.65},
	} {
		b := firstCompleteBuilding(g, p, tc.at)
		if b == nil || !pl.CanAfford(cfg.Units[tc.unit].Cost) {
			continue
		}
		score := tc.base * (1 - sit.MilitaryAdvantage)
		if sit.ThreatLevel > 0.5 {
			score += 0.3
		}
		cands = append(cands, candidate{
			action: rts.TrainAction{Building: b.ID, Unit: tc.unit},
			score:  score,
			label:  "train_" + string(tc.unit),
		})
	}

	// Construct production and tech, using the least-busy worker.
	if w := idleOrGatheringWorker(g, p); w != nil {
		site := buildSite(g, p)
		for _, bc := range []struct {
			typ   rts.BuildingType
			score float64
			want  bool
		}{
			{rts.Barracks, 0.75, g.CountBuildings(p, rts.Barracks, false) == 0},
			{rts.Factory, 0.55, g.CountBuildings(p, rts.Barracks, true) > 0 && g.CountBuildings(p, rts.Factory, false) == 0},
			{rts.Airpad, 0.45, g.CountBuildings(p, rts.Factory, true) > 0 && g.CountBuildings(p, rts.Airpad, false) == 0},
			{rts.Lab, 0.4, g.CountBuildings(p, rts.Lab, false) == 0},
			{rts.Base, 0.8, sit.CanExpand},
		} {
			if !bc.want || !pl.CanAfford(cfg.Buildings[bc.typ].Cost) {
				continue
			}
			cands = append(cands, candidate{
				action: rts.ConstructAction{Worker: w.ID, Building: bc.typ, Pos: site},
				score:  bc.score,
				label:  "construct_" + string(bc.typ),
			})
		}
	}

	// Research once a lab stands.
	if g.CountBuildings(p, rts.Lab, true) > 0 && pl.CanAfford(cfg.ResearchCost) && !pl.Research["combat_1"] {
		cands = append(cands, candidate{
			action: rts.ResearchAction{Tech: "combat_1"},
			score:  0.35 + 0.3*math.Max(0, -sit.TechAdvantage),
			label:  "research",
		})
	}

	// Army actions: attack when ahead, defend when pressured.
	if sit.Army > 0 {
		ratio := armyRatio(sit)
		if target := enemyRallyPoint(g, enemy); target != nil {
			cands = append(cands, candidate{
				action: rts.ArmyAction{Stance: rts.StanceAttack, Target: *target},
				score:  attackScore(ratio, sit),
				label:  "attack",
			})
		}
		if home := ownRallyPoint(g, p); home != nil {
			cands = append(cands, candidate{
				action: rts.ArmyAction{Stance: rts.StanceDefend, Target: *home},
				score:  defendScore(ratio, sit),
				label:  "defend",
			})
		}
	}

	return cands
}

// armyRatio is own army strength relative to the enemy's, capped so a dead
// opponent does not produce infinities.
func armyRatio(sit Situation) float64 {
	if sit.EnemyArmy == 0 {
		if sit.Army == 0 {
			return 1
		}
		return 3
	}
	r := float64(sit.Army) / float64(sit.EnemyArmy)
	return math.Min(r, 3)
}

func attackScore(ratio float64, sit Situation) float64 {
	score := 0.25 * ratio
	if sit.Army < 4 {
		score *= 0.3 // too small to matter; do not trickle units in
	}
	return score
}

func defendScore(ratio float64, sit Situation) float64 {
	score := 0.2 + 0.8*sit.ThreatLevel
	if ratio > 1.5 {
		score *= 0.5
	}
	return score
}

// firstCompleteBuilding returns the lowest-id completed building of the
// given type.
func firstCompleteBuilding(g *rts.Game, p rts.PlayerID, t rts.BuildingType) *rts.Building {
	for _, b := range g.BuildingsOf(p) {
		if b.Type == t && b.Complete {
			return b
		}
	}
	return nil
}

// idleOrGatheringWorker returns the lowest-id worker that is idle or
// gathering; builders mid-task are left alone.
func idleOrGatheringWorker(g *rts.Game, p rts.PlayerID) *rts.Unit {
	for _, u := range g.UnitsOf(p) {
		if u.Type != rts.Worker {
			continue
		}
		if u.State == rts.StateIdle || u.State == rts.StateGathering {
			return u
		}
	}
	return nil
}

// buildSite picks a construction spot near the player's first base, offset
// by how much is already built so structures do not stack.
func buildSite(g *rts.Game, p rts.PlayerID) rts.Vec2 {
	bs := g.BuildingsOf(p)
	if len(bs) == 0 {
		return rts.Vec2{}
	}
	anchor := bs[0].Pos
	n := float64(len(bs))
	return anchor.Add(rts.Vec2{X: 5 + 3*n, Y: 5})
}

// enemyRallyPoint is the enemy's first base position, or their first unit's.
func enemyRallyPoint(g *rts.Game, enemy rts.PlayerID) *rts.Vec2 {
	if bs := g.BuildingsOf(enemy); len(bs) > 0 {
		pos := bs[0].Pos
		return &pos
	}
	if us := g.UnitsOf(enemy); len(us) > 0 {
		pos := us[0].Pos
		return &pos
	}
	return nil
}

// ownRallyPoint is the player's first base position.
func ownRallyPoint(g *rts.Game, p rts.PlayerID) *rts.Vec2 {
	if bs := g.BuildingsOf(p); len(bs) > 0 {
		pos := bs[0].Pos
		return &pos
	}
	return nil
}
