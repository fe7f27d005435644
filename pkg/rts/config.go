package rts

// UnitType identifies a unit class.
type UnitType string

const (
	Worker  UnitType = "worker"
	Soldier UnitType = "soldier"
	Tank    UnitType = "tank"
	Air     UnitType = "air"
)

// BuildingType identifies a building class.
type BuildingType string

const (
	Base     BuildingType = "base"
	Barracks BuildingType = "barracks"
	Factory  BuildingType = "factory"
	Airpad   BuildingType = "airpad"
	Lab      BuildingType = "lab"
)

// ResourceKind identifies a currency.
type ResourceKind string

const (
	Minerals ResourceKind = "minerals"
	Gas      ResourceKind = "gas"
)

// Cost is a price in each currency.
type Cost struct {
	Minerals int `json:"minerals"`
	Gas      int `json:"gas"`
}

// Add returns the component-wise sum of two costs.
func (c Cost) Add(o Cost) Cost {
	return Cost{Minerals: c.Minerals + o.Minerals, Gas: c.Gas + o.Gas}
}

// UnitStats is the immutable stat block for a unit type.
type UnitStats struct {
	MaxHP      int
	Attack     int
	Defense    int
	Speed      float64 // world units per tick-second
	Range      float64
	Capacity   int // carried-resource capacity; 0 for non-gatherers
	Cost       Cost
	BuildTicks int
	TrainedAt  BuildingType
}

// BuildingStats is the immutable stat block for a building type.
type BuildingStats struct {
	MaxHP      int
	Cost       Cost
	BuildTicks int
	Depot      bool // accepts resource deposits
}

// Config is the injected rule set for a match. It is shared read-only by
// every component of a simulation; a Config must never be mutated after
// NewGame so concurrent matches can share one instance.
type Config struct {
	Units     map[UnitType]UnitStats
	Buildings map[BuildingType]BuildingStats

	TickRate            int     // logical ticks per second
	ArriveEpsilon       float64 // distance at which a move target counts as reached
	GatherRange         float64
	GatherRate          int // resources extracted per gather interval
	GatherIntervalTicks int
	AttackCooldownTicks int
	CommandWindowTicks  int // lookahead window for future-tick commands
	ResearchCost        Cost
	ResearchTicks       int
}

// DefaultConfig returns the stock balance values. Callers that need
// different numbers clone and edit before passing to NewGame.
func DefaultConfig() *Config {
	return &Config{
		Units: map[UnitType]UnitStats{
			Worker:  {MaxHP: 40, Attack: 2, Defense: 0, Speed: 2.8, Range: 0.5, Capacity: 10, Cost: Cost{Minerals: 50}, BuildTicks: 60, TrainedAt: Base},
			Soldier: {MaxHP: 55, Attack: 8, Defense: 1, Speed: 3.1, Range: 1.5, Cost: Cost{Minerals: 75}, BuildTicks: 90, TrainedAt: Barracks},
			Tank:    {MaxHP: 160, Attack: 24, Defense: 4, Speed: 2.2, Range: 4.0, Cost: Cost{Minerals: 150, Gas: 100}, BuildTicks: 180, TrainedAt: Factory},
			Air:     {MaxHP: 120, Attack: 16, Defense: 1, Speed: 4.5, Range: 3.0, Cost: Cost{Minerals: 125, Gas: 75}, BuildTicks: 150, TrainedAt: Airpad},
		},
		Buildings: map[BuildingType]BuildingStats{
			Base:     {MaxHP: 1500, Cost: Cost{Minerals: 400}, BuildTicks: 600, Depot: true},
			Barracks: {MaxHP: 800, Cost: Cost{Minerals: 150}, BuildTicks: 300},
			Factory:  {MaxHP: 900, Cost: Cost{Minerals: 200, Gas: 100}, BuildTicks: 360},
			Airpad:   {MaxHP: 700, Cost: Cost{Minerals: 150, Gas: 100}, BuildTicks: 330},
			Lab:      {MaxHP: 600, Cost: Cost{Minerals: 150, Gas: 50}, BuildTicks: 300},
		},
		TickRate:            60,
		ArriveEpsilon:       0.25,
		GatherRange:         1.0,
		GatherRate:          5,
		GatherIntervalTicks: 30,
		AttackCooldownTicks: 45,
		CommandWindowTicks:  600,
		ResearchCost:        Cost{Minerals: 100, Gas: 75},
		ResearchTicks:       420,
	}
}
