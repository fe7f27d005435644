package rts

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// UnitSnapshot is the read projection of one unit.
type UnitSnapshot struct {
	ID      UnitID    `json:"id"`
	Owner   PlayerID  `json:"owner"`
	Type    UnitType  `json:"type"`
	Pos     Vec2      `json:"pos"`
	HP      int       `json:"hp"`
	MaxHP   int       `json:"maxHp"`
	State   UnitState `json:"state"`
	Carried int       `json:"carried,omitempty"`
}

// BuildingSnapshot is the read projection of one building.
type BuildingSnapshot struct {
	ID       BuildingID   `json:"id"`
	Owner    PlayerID     `json:"owner"`
	Type     BuildingType `json:"type"`
	Pos      Vec2         `json:"pos"`
	HP       int          `json:"hp"`
	Complete bool         `json:"complete"`
	Progress int          `json:"progress,omitempty"`
}

// NodeSnapshot is the read projection of one resource node.
type NodeSnapshot struct {
	ID        NodeID       `json:"id"`
	Pos       Vec2         `json:"pos"`
	Kind      ResourceKind `json:"kind"`
	Remaining int          `json:"remaining"`
}

// PlayerSnapshot is the read projection of one player.
type PlayerSnapshot struct {
	ID       PlayerID             `json:"id"`
	Balances map[ResourceKind]int `json:"balances"`
}

// Snapshot is a complete, deterministic read projection of the match state:
// what a spectator or late joiner needs, and what desync checks hash. All
// slices are ordered by id. It is never a control surface; applying it back
// into a Game is the resync path, not a gameplay path.
type Snapshot struct {
	Tick      int                `json:"tick"`
	Units     []UnitSnapshot     `json:"units"`
	Buildings []BuildingSnapshot `json:"buildings"`
	Nodes     []NodeSnapshot     `json:"nodes"`
	Players   []PlayerSnapshot   `json:"players"`
}

// Snapshot captures the current state.
func (g *Game) Snapshot() *Snapshot {
	s := &Snapshot{Tick: g.tick}
	for _, id := range g.UnitIDs() {
		u := g.units[id]
		s.Units = append(s.Units, UnitSnapshot{
			ID: u.ID, Owner: u.Owner, Type: u.Type, Pos: u.Pos,
			HP: u.HP, MaxHP: u.MaxHP, State: u.State, Carried: u.Carried,
		})
	}
	for _, id := range g.BuildingIDs() {
		b := g.buildings[id]
		s.Buildings = append(s.Buildings, BuildingSnapshot{
			ID: b.ID, Owner: b.Owner, Type: b.Type, Pos: b.Pos,
			HP: b.HP, Complete: b.Complete, Progress: b.Progress,
		})
	}
	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		s.Nodes = append(s.Nodes, NodeSnapshot{ID: n.ID, Pos: n.Pos, Kind: n.Kind, Remaining: n.Remaining})
	}
	for _, pid := range g.PlayerIDs() {
		p := g.players[pid]
		s.Players = append(s.Players, PlayerSnapshot{
			ID: p.ID,
			Balances: map[ResourceKind]int{
				Minerals: p.Balances[Minerals],
				Gas:      p.Balances[Gas],
			},
		})
	}
	return s
}

// Checksum hashes the snapshot's canonical binary encoding. Two lockstep
// clients at the same tick must produce the same checksum; a mismatch is a
// desync.
func (s *Snapshot) Checksum() uint64 {
	d := xxhash.New()
	var buf [8]byte
	wInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	wFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	wStr := func(v string) {
		wInt(int64(len(v)))
		d.WriteString(v)
	}

	wInt(int64(s.Tick))
	for _, u := range s.Units {
		wInt(int64(u.ID))
		wInt(int64(u.Owner))
		wStr(string(u.Type))
		wFloat(u.Pos.X)
		wFloat(u.Pos.Y)
		wInt(int64(u.HP))
		wStr(string(u.State))
		wInt(int64(u.Carried))
	}
	for _, b := range s.Buildings {
		wInt(int64(b.ID))
		wInt(int64(b.Owner))
		wStr(string(b.Type))
		wFloat(b.Pos.X)
		wFloat(b.Pos.Y)
		wInt(int64(b.HP))
		if b.Complete {
			wInt(1)
		} else {
			wInt(0)
		}
		wInt(int64(b.Progress))
	}
	for _, n := range s.Nodes {
		wInt(int64(n.ID))
		wStr(string(n.Kind))
		wInt(int64(n.Remaining))
	}
	for _, p := range s.Players {
		wInt(int64(p.ID))
		wInt(int64(p.Balances[Minerals]))
		wInt(int64(p.Balances[Gas]))
	}
	return d.Sum64()
}
