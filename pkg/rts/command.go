package rts

// Action is the payload of a command: one concrete struct per action kind,
// matched exhaustively in the tick loop. There is no generic "params" bag;
// an unknown action kind is a programming error, not a runtime branch.
type Action interface {
	Kind() string
}

// MoveAction orders units to a world position.
type MoveAction struct {
	Units  []UnitID `json:"units"`
	Target Vec2     `json:"target"`
}

func (MoveAction) Kind() string { return "move" }

// AttackAction orders units onto a target unit.
type AttackAction struct {
	Units  []UnitID `json:"units"`
	Target UnitID   `json:"target"`
}

func (AttackAction) Kind() string { return "attack" }

// GatherAction orders workers onto a resource node.
type GatherAction struct {
	Units []UnitID `json:"units"`
	Node  NodeID   `json:"node"`
}

func (GatherAction) Kind() string { return "gather" }

// TrainAction queues a unit at a production building.
type TrainAction struct {
	Building BuildingID `json:"building"`
	Unit     UnitType   `json:"unit"`
}

func (TrainAction) Kind() string { return "train" }

// ConstructAction starts a building at a position using a worker.
type ConstructAction struct {
	Worker   UnitID       `json:"worker"`
	Building BuildingType `json:"building"`
	Pos      Vec2         `json:"pos"`
}

func (ConstructAction) Kind() string { return "construct" }

// ResearchAction starts a named upgrade at a lab.
type ResearchAction struct {
	Tech string `json:"tech"`
}

func (ResearchAction) Kind() string { return "research" }

// Stance is an army-wide tactical intent.
type Stance string

const (
	StanceAttack Stance = "attack"
	StanceDefend Stance = "defend"
)

// ArmyAction forms the player's military units up and sends them toward a
// position (attack) or gathers them around it (defend).
type ArmyAction struct {
	Stance Stance `json:"stance"`
	Target Vec2   `json:"target"`
}

func (ArmyAction) Kind() string { return "army" }

// Command is an immutable intent enqueued for a future tick. IssuedAt is a
// logical timestamp assigned at issue time (not a wall-clock read inside the
// simulation); together with Player and Seq it gives every command a total
// order that all lockstep clients agree on regardless of network arrival
// order.
type Command struct {
	Tick     int
	Player   PlayerID
	IssuedAt int64
	Seq      int
	Action   Action
}
