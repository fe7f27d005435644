// Package ai implements the computer opponents: a reactive utility scorer, a
// state-machine commander with an evolving personality, a goal-driven
// strategic planner, and an optional external advisor hookup. Everything in
// this package is deterministic for a fixed seed; an AI that cannot agree
// with its replica on another client is a desync generator, not an opponent.
package ai

import "github.com/lucylow/quaternion-sub009/pkg/rts"

// Situation is the aggregate view of a match from one player's side,
// recomputed each evaluation cycle and fed to the commander, the planner,
// and the doctrine rules.
type Situation struct {
	Tick int

	Minerals int
	Gas      int

	Workers     int
	Army        int
	EnemyArmy   int
	Bases       int
	EnemyBases  int
	Production  int // completed military production buildings
	EnemyThreat int // enemy military units near our bases

	ThreatLevel       float64 // 0..1
	EconomicSat       float64 // worker saturation, 0..1
	MilitaryAdvantage float64 // (own - enemy) / (own + enemy), -1..1
	TechAdvantage     float64 // research + tech-building differential, -1..1
	CanExpand         bool
}

// Saturation is reached at this many workers per base.
const workersPerBase = 12

// threatRadius is how close enemy military must be to a base to count as
// pressure.
const threatRadius = 25.0

// Evaluate summarizes the match from p's perspective against enemy. Both
// sides are measured from observable state only; there is no random fudge in
// any advantage term, because a random term would diverge between lockstep
// replicas of the same AI.
func Evaluate(g *rts.Game, p, enemy rts.PlayerID) Situation {
	s := Situation{Tick: g.Tick()}

	pl := g.Player(p)
	s.Minerals = pl.Balances[rts.Minerals]
	s.Gas = pl.Balances[rts.Gas]

	s.Workers = g.CountUnits(p, rts.Worker)
	s.Army = armyCount(g, p)
	s.EnemyArmy = armyCount(g, enemy)
	s.Bases = g.CountBuildings(p, rts.Base, true)
	s.EnemyBases = g.CountBuildings(enemy, rts.Base, true)
	s.Production = g.CountBuildings(p, rts.Barracks, true) +
		g.CountBuildings(p, rts.Factory, true) +
		g.CountBuildings(p, rts.Airpad, true)

	for _, b := range g.BuildingsOf(p) {
		if b.Type != rts.Base || !b.Complete {
			continue
		}
		for _, u := range g.UnitsOf(enemy) {
			if u.Type != rts.Worker && u.Pos.Dist(b.Pos) <= threatRadius {
				s.EnemyThreat++
			}
		}
	}
	if s.Bases > 0 {
		s.ThreatLevel = clamp01(float64(s.EnemyThreat) / 6.0)
	}

	if s.Bases > 0 {
		s.EconomicSat = clamp01(float64(s.Workers) / float64(s.Bases*workersPerBase))
	}

	if total := s.Army + s.EnemyArmy; total > 0 {
		s.MilitaryAdvantage = float64(s.Army-s.EnemyArmy) / float64(total)
	}

	s.TechAdvantage = techScore(g, p) - techScore(g, enemy)
	s.CanExpand = s.EconomicSat >= 0.85 && pl.CanAfford(g.Config().Buildings[rts.Base].Cost)

	return s
}

// armyCount is the number of live military (non-worker) units.
func armyCount(g *rts.Game, p rts.PlayerID) int {
	n := 0
	for _, u := range g.UnitsOf(p) {
		if u.Type != rts.Worker {
			n++
		}
	}
	return n
}

// techScore in [0,1]: researched upgrades plus advanced production.
func techScore(g *rts.Game, p rts.PlayerID) float64 {
	score := 0.0
	score += 0.2 * float64(len(g.Player(p).Research))
	score += 0.15 * float64(g.CountBuildings(p, rts.Lab, true))
	score += 0.1 * float64(g.CountBuildings(p, rts.Factory, true))
	score += 0.1 * float64(g.CountBuildings(p, rts.Airpad, true))
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
