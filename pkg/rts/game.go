package rts

import "sort"

// Game is one match's complete simulation state. A Game is advanced one tick
// at a time by Step and is never touched concurrently; independent matches
// hold independent Games and share nothing mutable.
type Game struct {
	cfg  *Config
	rng  *Rand
	tick int

	nextID     int64
	units      map[UnitID]*Unit
	buildings  map[BuildingID]*Building
	nodes      map[NodeID]*ResourceNode
	players    map[PlayerID]*Player
	formations map[FormationID]*Formation

	queue    *CommandQueue
	sink     EventSink
	research []researchJob

	seq int // per-game sequence for locally issued commands
}

// NewGame creates an empty simulation with the given rule set and seed.
// sink may be nil.
func NewGame(cfg *Config, seed int64, sink EventSink) *Game {
	if sink == nil {
		sink = NopSink{}
	}
	return &Game{
		cfg:        cfg,
		rng:        NewRand(seed),
		units:      make(map[UnitID]*Unit),
		buildings:  make(map[BuildingID]*Building),
		nodes:      make(map[NodeID]*ResourceNode),
		players:    make(map[PlayerID]*Player),
		formations: make(map[FormationID]*Formation),
		queue:      NewCommandQueue(cfg.CommandWindowTicks),
		sink:       sink,
	}
}

// NewSkirmish creates a standard two-sided match: per player one completed
// base, four workers, and a mineral and gas node nearby. Bases are spaced
// along the x axis.
func NewSkirmish(cfg *Config, seed int64, sink EventSink, playerIDs []PlayerID) *Game {
	g := NewGame(cfg, seed, sink)
	const spacing = 60.0
	for i, pid := range playerIDs {
		g.AddPlayer(pid, map[ResourceKind]int{Minerals: 400, Gas: 0})
		basePos := Vec2{X: float64(i) * spacing, Y: 0}
		g.SpawnBuilding(pid, Base, basePos, true)
		for w := 0; w < 4; w++ {
			g.SpawnUnit(pid, Worker, basePos.Add(Vec2{X: 2 + float64(w), Y: 2}))
		}
		g.SpawnNode(Minerals, basePos.Add(Vec2{X: -4, Y: 4}), 1500)
		g.SpawnNode(Gas, basePos.Add(Vec2{X: 4, Y: -4}), 1000)
	}
	return g
}

// Config returns the injected rule set.
func (g *Game) Config() *Config { return g.cfg }

// Tick returns the next tick to be simulated.
func (g *Game) Tick() int { return g.tick }

// Rand returns the simulation's random source. AI players should Fork their
// own stream rather than interleave draws with the simulation.
func (g *Game) Rand() *Rand { return g.rng }

// Push enqueues a command for a future tick.
func (g *Game) Push(c Command) error {
	return g.queue.Push(c, g.tick)
}

// NextSeq returns a monotonically increasing sequence number for locally
// issued commands.
func (g *Game) NextSeq() int {
	g.seq++
	return g.seq
}

// AddPlayer registers a player with starting balances.
func (g *Game) AddPlayer(id PlayerID, balances map[ResourceKind]int) *Player {
	p := &Player{
		ID:       id,
		Balances: balances,
		Research: make(map[string]bool),
	}
	if p.Balances == nil {
		p.Balances = make(map[ResourceKind]int)
	}
	g.players[id] = p
	return p
}

// Player returns the player with the given id, or nil.
func (g *Game) Player(id PlayerID) *Player { return g.players[id] }

// PlayerIDs returns all player ids in ascending order.
func (g *Game) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Game) nextEntityID() int64 {
	g.nextID++
	return g.nextID
}

// SpawnUnit creates a unit at full health.
func (g *Game) SpawnUnit(owner PlayerID, t UnitType, pos Vec2) *Unit {
	stats := g.cfg.Units[t]
	u := &Unit{
		ID:       UnitID(g.nextEntityID()),
		Owner:    owner,
		Type:     t,
		Pos:      pos,
		HP:       stats.MaxHP,
		MaxHP:    stats.MaxHP,
		State:    StateIdle,
		Capacity: stats.Capacity,
		// Fresh units are off cooldown: their first attack or extraction
		// resolves immediately rather than one full interval late.
		lastAttackTick: -g.cfg.AttackCooldownTicks,
		lastGatherTick: -g.cfg.GatherIntervalTicks,
	}
	g.units[u.ID] = u
	return u
}

// SpawnBuilding creates a building, optionally already complete.
func (g *Game) SpawnBuilding(owner PlayerID, t BuildingType, pos Vec2, complete bool) *Building {
	stats := g.cfg.Buildings[t]
	b := &Building{
		ID:       BuildingID(g.nextEntityID()),
		Owner:    owner,
		Type:     t,
		Pos:      pos,
		HP:       stats.MaxHP,
		MaxHP:    stats.MaxHP,
		Complete: complete,
	}
	if complete {
		b.Progress = stats.BuildTicks
	}
	g.buildings[b.ID] = b
	return b
}

// SpawnNode creates a resource node.
func (g *Game) SpawnNode(kind ResourceKind, pos Vec2, amount int) *ResourceNode {
	n := &ResourceNode{
		ID:        NodeID(g.nextEntityID()),
		Pos:       pos,
		Kind:      kind,
		Remaining: amount,
	}
	g.nodes[n.ID] = n
	return n
}

// Unit returns the unit with the given id, or nil if it no longer exists.
func (g *Game) Unit(id UnitID) *Unit { return g.units[id] }

// Building returns the building with the given id, or nil.
func (g *Game) Building(id BuildingID) *Building { return g.buildings[id] }

// Node returns the resource node with the given id, or nil.
func (g *Game) Node(id NodeID) *ResourceNode { return g.nodes[id] }

// UnitIDs returns all live unit ids in ascending order. Entity iteration in
// the tick loop goes through this, never directly over the map, so update
// order is identical on every client.
func (g *Game) UnitIDs() []UnitID {
	ids := make([]UnitID, 0, len(g.units))
	for id := range g.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildingIDs returns all building ids in ascending order.
func (g *Game) BuildingIDs() []BuildingID {
	ids := make([]BuildingID, 0, len(g.buildings))
	for id := range g.buildings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FormationIDs returns all formation ids in ascending order.
func (g *Game) FormationIDs() []FormationID {
	ids := make([]FormationID, 0, len(g.formations))
	for id := range g.formations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NodeIDs returns all resource node ids in ascending order.
func (g *Game) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UnitsOf returns the player's live units in ascending id order.
func (g *Game) UnitsOf(p PlayerID) []*Unit {
	var units []*Unit
	for _, id := range g.UnitIDs() {
		if u := g.units[id]; u.Owner == p {
			units = append(units, u)
		}
	}
	return units
}

// BuildingsOf returns the player's buildings in ascending id order.
func (g *Game) BuildingsOf(p PlayerID) []*Building {
	var bs []*Building
	for _, id := range g.BuildingIDs() {
		if b := g.buildings[id]; b.Owner == p {
			bs = append(bs, b)
		}
	}
	return bs
}

// CountUnits returns how many live units of type t the player owns.
func (g *Game) CountUnits(p PlayerID, t UnitType) int {
	n := 0
	for _, u := range g.units {
		if u.Owner == p && u.Type == t {
			n++
		}
	}
	return n
}

// CountBuildings returns how many buildings of type t the player owns.
// Incomplete buildings count only when completeOnly is false.
func (g *Game) CountBuildings(p PlayerID, t BuildingType, completeOnly bool) int {
	n := 0
	for _, b := range g.buildings {
		if b.Owner != p || b.Type != t {
			continue
		}
		if completeOnly && !b.Complete {
			continue
		}
		n++
	}
	return n
}

// NearestDepot returns the player's nearest completed depot building to pos,
// or nil. Ties break on lower building id.
func (g *Game) NearestDepot(p PlayerID, pos Vec2) *Building {
	var best *Building
	bestDist := 0.0
	for _, id := range g.BuildingIDs() {
		b := g.buildings[id]
		if b.Owner != p || !b.Complete || !g.cfg.Buildings[b.Type].Depot {
			continue
		}
		d := pos.Dist(b.Pos)
		if best == nil || d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

// NearestNode returns the nearest non-depleted resource node of the given
// kind, or nil. Ties break on lower node id.
func (g *Game) NearestNode(kind ResourceKind, pos Vec2) *ResourceNode {
	var best *ResourceNode
	bestDist := 0.0
	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		if n.Kind != kind || n.Remaining <= 0 {
			continue
		}
		d := pos.Dist(n.Pos)
		if best == nil || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}
