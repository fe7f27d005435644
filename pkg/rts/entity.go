package rts

import "math"

// UnitID identifies a unit or building. Cross-entity references (attack
// targets, formation membership) are held as IDs, never pointers, so a
// destroyed entity becomes an unresolvable id rather than a dangling
// reference.
type UnitID int64

// BuildingID identifies a building.
type BuildingID int64

// NodeID identifies a resource node.
type NodeID int64

// FormationID identifies a formation.
type FormationID int64

// PlayerID identifies a player. 0 is never a valid player.
type PlayerID int

// NoUnit is the zero UnitID, meaning "no target".
const NoUnit UnitID = 0

// Vec2 is a 2D world position or offset.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dist returns the euclidean distance to o.
func (v Vec2) Dist(o Vec2) float64 {
	dx, dy := v.X-o.X, v.Y-o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// AngleTo returns the angle from v toward o in radians.
func (v Vec2) AngleTo(o Vec2) float64 {
	return math.Atan2(o.Y-v.Y, o.X-v.X)
}

// UnitState is a unit's behavioral state.
type UnitState string

const (
	StateIdle      UnitState = "idle"
	StateMoving    UnitState = "moving"
	StateAttacking UnitState = "attacking"
	StateGathering UnitState = "gathering"
	StateBuilding  UnitState = "building"
)

// Unit is a mobile entity. HP is clamped to [0, MaxHP]; a unit whose HP
// reaches 0 is pruned on the same tick.
type Unit struct {
	ID    UnitID
	Owner PlayerID
	Type  UnitType
	Pos   Vec2

	HP    int
	MaxHP int

	State        UnitState
	MoveTarget   *Vec2
	Target       UnitID     // attack target; weak reference
	StructTarget BuildingID // structure attack target, used when Target is NoUnit
	GatherNode   NodeID
	BuildSite    BuildingID
	Formation    FormationID

	Carried     int
	Capacity    int
	CarriedKind ResourceKind

	lastAttackTick int
	lastGatherTick int
}

// Alive reports whether the unit is still in play.
func (u *Unit) Alive() bool { return u.HP > 0 }

// Building is a static entity. Until Complete it contributes nothing to game
// logic beyond occupying its construction slot.
type Building struct {
	ID       BuildingID
	Owner    PlayerID
	Type     BuildingType
	Pos      Vec2
	HP       int
	MaxHP    int
	Complete bool
	Progress int // construction ticks accumulated

	// Training pipeline: at most one unit in production at a time.
	TrainingType  UnitType
	TrainingLeft  int
	TrainingQueue []UnitType
}

// ResourceNode holds a finite stock of one resource kind. Remaining is
// monotonically non-increasing; a depleted node is pruned and no longer a
// valid gather target.
type ResourceNode struct {
	ID        NodeID
	Pos       Vec2
	Kind      ResourceKind
	Remaining int
}

// Player holds per-player currency balances. Owned unit and building sets
// are derived by scanning the entity set, never stored, so there is no
// second source of truth to drift.
type Player struct {
	ID       PlayerID
	Balances map[ResourceKind]int
	Research map[string]bool
	Defeated bool
}

// CanAfford reports whether the player's balances cover cost.
func (p *Player) CanAfford(c Cost) bool {
	return p.Balances[Minerals] >= c.Minerals && p.Balances[Gas] >= c.Gas
}

// Spend deducts cost from the player's balances. Callers must have checked
// CanAfford; Spend does not go negative silently, it panics, because a
// negative balance on one client is a desync in waiting.
func (p *Player) Spend(c Cost) {
	if !p.CanAfford(c) {
		panic("rts: Spend without CanAfford")
	}
	p.Balances[Minerals] -= c.Minerals
	p.Balances[Gas] -= c.Gas
}
