package rts

import "math"

// readState is the start-of-tick view of a unit used by all per-unit
// updates. Reading through the snapshot instead of live state keeps the
// update order-independent: unit 7 sees the same world whether unit 3 was
// updated before it or not.
type readState struct {
	pos   Vec2
	hp    int
	owner PlayerID
	typ   UnitType
}

type researchJob struct {
	player   PlayerID
	tech     string
	doneTick int
}

// Step advances the simulation by exactly one tick: apply the sorted command
// batch, advance production and research, run every unit's state machine in
// ascending id order against the start-of-tick snapshot, then prune the
// dead and the depleted. Step never blocks and never reads a clock.
func (g *Game) Step() {
	tick := g.tick

	for _, c := range g.queue.Drain(tick) {
		g.applyCommand(c)
	}

	g.advanceProduction(tick)
	g.advanceResearch(tick)

	snap := make(map[UnitID]readState, len(g.units))
	for id, u := range g.units {
		snap[id] = readState{pos: u.Pos, hp: u.HP, owner: u.Owner, typ: u.Type}
	}

	// Damage is accumulated during the update phase and applied afterwards
	// in id order, so resolution does not depend on iteration order.
	damage := make(map[UnitID]int)
	siege := make(map[BuildingID]int)
	for _, id := range g.UnitIDs() {
		g.updateUnit(g.units[id], snap, damage, siege, tick)
	}
	for _, id := range g.UnitIDs() {
		if d := damage[id]; d > 0 {
			u := g.units[id]
			u.HP -= d
			if u.HP < 0 {
				u.HP = 0
			}
		}
	}
	for _, id := range g.BuildingIDs() {
		if d := siege[id]; d > 0 {
			b := g.buildings[id]
			b.HP -= d
			if b.HP < 0 {
				b.HP = 0
			}
		}
	}

	g.prune(tick)
	g.refreshFormations(tick)
	g.tick++
}

// applyCommand validates and applies one command. Illegal commands are
// dropped with a rejection event; they are never fatal and never partially
// applied.
func (g *Game) applyCommand(c Command) {
	p := g.players[c.Player]
	if p == nil {
		g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: c.Action.Kind(), Reason: "rejected: unknown player"})
		return
	}

	switch a := c.Action.(type) {
	case MoveAction:
		applied := 0
		for _, id := range a.Units {
			u := g.units[id]
			if u == nil || u.Owner != c.Player {
				continue
			}
			t := a.Target
			u.MoveTarget = &t
			u.State = StateMoving
			u.Target = NoUnit
			u.StructTarget = 0
			u.GatherNode = 0
			u.BuildSite = 0
			applied++
		}
		if applied == 0 {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: no valid units"})
			return
		}

	case AttackAction:
		target := g.units[a.Target]
		if target == nil || target.Owner == c.Player {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: invalid target"})
			return
		}
		applied := 0
		for _, id := range a.Units {
			u := g.units[id]
			if u == nil || u.Owner != c.Player {
				continue
			}
			u.State = StateAttacking
			u.Target = a.Target
			u.StructTarget = 0
			u.MoveTarget = nil
			applied++
		}
		if applied == 0 {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: no valid units"})
			return
		}

	case GatherAction:
		node := g.nodes[a.Node]
		if node == nil || node.Remaining <= 0 {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: invalid node"})
			return
		}
		applied := 0
		for _, id := range a.Units {
			u := g.units[id]
			if u == nil || u.Owner != c.Player || u.Type != Worker {
				continue
			}
			u.State = StateGathering
			u.GatherNode = a.Node
			u.MoveTarget = nil
			u.Target = NoUnit
			u.StructTarget = 0
			applied++
		}
		if applied == 0 {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: no valid workers"})
			return
		}

	case TrainAction:
		b := g.buildings[a.Building]
		stats, ok := g.cfg.Units[a.Unit]
		if b == nil || b.Owner != c.Player || !b.Complete || !ok || stats.TrainedAt != b.Type {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: invalid production"})
			return
		}
		if !p.CanAfford(stats.Cost) {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: insufficient resources"})
			return
		}
		p.Spend(stats.Cost)
		b.TrainingQueue = append(b.TrainingQueue, a.Unit)

	case ConstructAction:
		w := g.units[a.Worker]
		stats, ok := g.cfg.Buildings[a.Building]
		if w == nil || w.Owner != c.Player || w.Type != Worker || !ok {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: invalid worker or type"})
			return
		}
		if !p.CanAfford(stats.Cost) {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: insufficient resources"})
			return
		}
		p.Spend(stats.Cost)
		site := g.SpawnBuilding(c.Player, a.Building, a.Pos, false)
		w.State = StateBuilding
		w.BuildSite = site.ID
		w.GatherNode = 0
		w.Target = NoUnit
		w.StructTarget = 0

	case ResearchAction:
		if g.CountBuildings(c.Player, Lab, true) == 0 || p.Research[a.Tech] {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: no lab or already researched"})
			return
		}
		if !p.CanAfford(g.cfg.ResearchCost) {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: insufficient resources"})
			return
		}
		p.Spend(g.cfg.ResearchCost)
		g.research = append(g.research, researchJob{player: c.Player, tech: a.Tech, doneTick: c.Tick + g.cfg.ResearchTicks})

	case ArmyAction:
		var army []UnitID
		for _, u := range g.UnitsOf(c.Player) {
			if u.Type != Worker {
				army = append(army, u.ID)
			}
		}
		if len(army) == 0 {
			g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: a.Kind(), Reason: "rejected: no army"})
			return
		}
		f := g.FormUp(army, a.Stance, a.Target)
		g.applyFormationMove(f)

	default:
		g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: c.Action.Kind(), Reason: "rejected: unknown action"})
		return
	}

	g.sink.Record(Event{Tick: c.Tick, Actor: c.Player, Action: c.Action.Kind()})
}

// advanceProduction ticks every complete building's training pipeline.
func (g *Game) advanceProduction(tick int) {
	for _, id := range g.BuildingIDs() {
		b := g.buildings[id]
		if !b.Complete {
			continue
		}
		if b.TrainingLeft > 0 {
			b.TrainingLeft--
			if b.TrainingLeft == 0 {
				u := g.SpawnUnit(b.Owner, b.TrainingType, b.Pos.Add(Vec2{X: 1.5, Y: 1.5}))
				g.sink.Record(Event{Tick: tick, Actor: b.Owner, Action: "trained", Reason: string(u.Type)})
				b.TrainingType = ""
			}
			continue
		}
		if len(b.TrainingQueue) > 0 {
			b.TrainingType = b.TrainingQueue[0]
			b.TrainingQueue = b.TrainingQueue[1:]
			b.TrainingLeft = g.cfg.Units[b.TrainingType].BuildTicks
		}
	}
}

// advanceResearch completes research jobs whose time has elapsed.
func (g *Game) advanceResearch(tick int) {
	kept := g.research[:0]
	for _, job := range g.research {
		if tick >= job.doneTick {
			if p := g.players[job.player]; p != nil {
				p.Research[job.tech] = true
			}
			g.sink.Record(Event{Tick: tick, Actor: job.player, Action: "researched", Reason: job.tech})
			continue
		}
		kept = append(kept, job)
	}
	g.research = kept
}

// updateUnit runs one unit's state machine for one tick. All reads of other
// units go through snap; unit damage goes into damage, structure damage
// into siege.
func (g *Game) updateUnit(u *Unit, snap map[UnitID]readState, damage map[UnitID]int, siege map[BuildingID]int, tick int) {
	stats := g.cfg.Units[u.Type]
	stepDist := stats.Speed / float64(g.cfg.TickRate)

	switch u.State {
	case StateIdle:
		// Automatic target acquisition for military units. Enemy units
		// take priority; with none in reach, structures are next. A unit
		// in an attack-intent formation sweeps for structures at any
		// range, so an assault that cleared the defenders finishes the
		// base instead of parking on it.
		if u.Type != Worker {
			if id := g.acquireTarget(u, snap, stats.Range+2.0); id != NoUnit {
				u.State = StateAttacking
				u.Target = id
				return
			}
			radius := stats.Range + 2.0
			if f := g.formations[u.Formation]; f != nil && f.Intent == StanceAttack {
				radius = math.Inf(1)
			}
			if bid := g.acquireStructure(u, radius); bid != 0 {
				u.State = StateAttacking
				u.StructTarget = bid
			}
		}

	case StateMoving:
		if u.MoveTarget == nil {
			u.State = StateIdle
			return
		}
		if g.moveToward(u, *u.MoveTarget, stepDist) {
			u.MoveTarget = nil
			u.State = StateIdle
		}

	case StateAttacking:
		if u.Target == NoUnit {
			g.updateSieger(u, stats, siege, stepDist, tick)
			return
		}
		ts, ok := snap[u.Target]
		if !ok || ts.hp <= 0 {
			u.Target = NoUnit
			u.State = StateIdle
			return
		}
		dist := u.Pos.Dist(ts.pos)
		if dist > stats.Range {
			g.moveToward(u, ts.pos, stepDist)
			return
		}
		if tick-u.lastAttackTick >= g.cfg.AttackCooldownTicks {
			def := g.cfg.Units[ts.typ].Defense
			dmg := stats.Attack - def
			if dmg < 1 {
				dmg = 1
			}
			damage[u.Target] += dmg
			u.lastAttackTick = tick
		}

	case StateGathering:
		g.updateGatherer(u, stats, stepDist, tick)

	case StateBuilding:
		site := g.buildings[u.BuildSite]
		if site == nil || site.Complete {
			u.BuildSite = 0
			u.State = StateIdle
			return
		}
		if u.Pos.Dist(site.Pos) > g.cfg.GatherRange {
			g.moveToward(u, site.Pos, stepDist)
			return
		}
		site.Progress++
		if site.Progress >= g.cfg.Buildings[site.Type].BuildTicks {
			site.Complete = true
			g.sink.Record(Event{Tick: tick, Actor: site.Owner, Action: "constructed", Reason: string(site.Type)})
			u.BuildSite = 0
			u.State = StateIdle
		}
	}
}

// updateSieger drives an attack on a structure. Structures never fight
// back, so there is no defense term; damage still lands through the siege
// map so resolution stays order-independent.
func (g *Game) updateSieger(u *Unit, stats UnitStats, siege map[BuildingID]int, stepDist float64, tick int) {
	b := g.buildings[u.StructTarget]
	if b == nil {
		u.StructTarget = 0
		u.State = StateIdle
		return
	}
	if u.Pos.Dist(b.Pos) > stats.Range {
		g.moveToward(u, b.Pos, stepDist)
		return
	}
	if tick-u.lastAttackTick >= g.cfg.AttackCooldownTicks {
		dmg := stats.Attack
		if dmg < 1 {
			dmg = 1
		}
		siege[u.StructTarget] += dmg
		u.lastAttackTick = tick
	}
}

// updateGatherer drives the gather loop: extract until full, walk the haul
// to the nearest depot, deposit, return.
func (g *Game) updateGatherer(u *Unit, stats UnitStats, stepDist float64, tick int) {
	if u.Carried >= u.Capacity {
		depot := g.NearestDepot(u.Owner, u.Pos)
		if depot == nil {
			// Nowhere to deposit; hold position until a depot completes.
			return
		}
		if u.Pos.Dist(depot.Pos) > g.cfg.GatherRange {
			g.moveToward(u, depot.Pos, stepDist)
			return
		}
		p := g.players[u.Owner]
		p.Balances[u.CarriedKind] += u.Carried
		g.sink.Record(Event{Tick: tick, Actor: u.Owner, Action: "deposit", Reason: string(u.CarriedKind)})
		u.Carried = 0
		return
	}

	node := g.nodes[u.GatherNode]
	if node == nil || node.Remaining <= 0 {
		// Depleted mid-trip: retarget the nearest live node of the same
		// kind, or give up.
		kind := u.CarriedKind
		if node != nil {
			kind = node.Kind
		}
		if next := g.NearestNode(kind, u.Pos); next != nil {
			u.GatherNode = next.ID
			return
		}
		u.GatherNode = 0
		u.State = StateIdle
		return
	}
	if u.Pos.Dist(node.Pos) > g.cfg.GatherRange {
		g.moveToward(u, node.Pos, stepDist)
		return
	}
	if tick-u.lastGatherTick < g.cfg.GatherIntervalTicks {
		return
	}
	take := g.cfg.GatherRate
	if room := u.Capacity - u.Carried; take > room {
		take = room
	}
	if take > node.Remaining {
		take = node.Remaining
	}
	node.Remaining -= take
	u.Carried += take
	u.CarriedKind = node.Kind
	u.lastGatherTick = tick
}

// moveToward integrates the unit's position toward target, clamped so it
// never overshoots. Returns true when the unit is within the arrival
// epsilon.
func (g *Game) moveToward(u *Unit, target Vec2, stepDist float64) bool {
	d := u.Pos.Dist(target)
	if d <= g.cfg.ArriveEpsilon {
		return true
	}
	if stepDist >= d {
		u.Pos = target
		return true
	}
	dir := target.Sub(u.Pos).Scale(1 / d)
	u.Pos = u.Pos.Add(dir.Scale(stepDist))
	return false
}

// acquireTarget returns the nearest enemy unit within radius, breaking
// distance ties on lower id, or NoUnit.
func (g *Game) acquireTarget(u *Unit, snap map[UnitID]readState, radius float64) UnitID {
	best := NoUnit
	bestDist := 0.0
	for _, id := range g.UnitIDs() {
		s := snap[id]
		if s.owner == u.Owner || s.hp <= 0 {
			continue
		}
		d := u.Pos.Dist(s.pos)
		if d > radius {
			continue
		}
		if best == NoUnit || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// acquireStructure returns the nearest enemy building within radius,
// breaking distance ties on lower id, or 0.
func (g *Game) acquireStructure(u *Unit, radius float64) BuildingID {
	var best BuildingID
	bestDist := 0.0
	for _, id := range g.BuildingIDs() {
		b := g.buildings[id]
		if b.Owner == u.Owner || b.HP <= 0 {
			continue
		}
		d := u.Pos.Dist(b.Pos)
		if d > radius {
			continue
		}
		if best == 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// prune removes dead units, dead buildings, and depleted nodes, and detaches
// pruned entities from formations on the same tick they die.
func (g *Game) prune(tick int) {
	for _, id := range g.UnitIDs() {
		u := g.units[id]
		if u.HP > 0 {
			continue
		}
		if u.Formation != 0 {
			g.RemoveFromFormation(u.Formation, id)
		}
		delete(g.units, id)
		g.sink.Record(Event{Tick: tick, Actor: u.Owner, Action: "unit_destroyed", Reason: string(u.Type)})
	}
	for _, id := range g.BuildingIDs() {
		b := g.buildings[id]
		if b.HP <= 0 {
			delete(g.buildings, id)
			g.sink.Record(Event{Tick: tick, Actor: b.Owner, Action: "building_destroyed", Reason: string(b.Type)})
		}
	}
	for _, id := range g.NodeIDs() {
		if g.nodes[id].Remaining <= 0 {
			delete(g.nodes, id)
		}
	}
}
