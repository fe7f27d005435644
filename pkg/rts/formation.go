package rts

import "math"

// FormationType names a spatial arrangement.
type FormationType string

const (
	FormationLine   FormationType = "line"
	FormationWedge  FormationType = "wedge"
	FormationBox    FormationType = "box"
	FormationCircle FormationType = "circle"
	FormationColumn FormationType = "column"
)

// Formation assigns per-unit offsets around a computed center. Membership is
// weak: members are UnitIDs, and a unit pruned from the simulation is
// detached on the same tick. A formation with no members is disbanded.
type Formation struct {
	ID      FormationID
	Type    FormationType
	Members []UnitID
	Center  Vec2
	Spacing float64
	Intent  Stance
	Target  *Vec2
}

// ChooseFormationType picks an arrangement from the tactical intent, group
// size, and composition: small groups form a line; attacking mixed groups a
// wedge; large defensive groups a box or, with air cover, a circle;
// otherwise a column for transit.
func ChooseFormationType(intent Stance, units []*Unit) FormationType {
	n := len(units)
	if n <= 4 {
		return FormationLine
	}
	mixed := false
	hasAir := false
	first := units[0].Type
	for _, u := range units {
		if u.Type != first {
			mixed = true
		}
		if u.Type == Air {
			hasAir = true
		}
	}
	if intent == StanceAttack {
		if mixed {
			return FormationWedge
		}
		return FormationColumn
	}
	if n >= 10 && hasAir {
		return FormationCircle
	}
	if n >= 10 {
		return FormationBox
	}
	return FormationLine
}

// FormationOffsets computes one offset per slot for the given arrangement,
// rotated so the formation faces the given angle. Offsets are relative to
// the formation center.
func FormationOffsets(t FormationType, n int, spacing, facing float64) []Vec2 {
	offsets := make([]Vec2, n)
	switch t {
	case FormationLine:
		for i := range offsets {
			offsets[i] = Vec2{X: 0, Y: (float64(i) - float64(n-1)/2) * spacing}
		}
	case FormationColumn:
		for i := range offsets {
			offsets[i] = Vec2{X: -float64(i) * spacing, Y: 0}
		}
	case FormationWedge:
		// Slot 0 at the tip, then pairs fanning back.
		for i := range offsets {
			rank := (i + 1) / 2
			side := 1.0
			if i%2 == 0 {
				side = -1.0
			}
			if i == 0 {
				side = 0
			}
			offsets[i] = Vec2{X: -float64(rank) * spacing, Y: side * float64(rank) * spacing}
		}
	case FormationBox:
		cols := int(math.Ceil(math.Sqrt(float64(n))))
		for i := range offsets {
			row, col := i/cols, i%cols
			offsets[i] = Vec2{
				X: (float64(row) - float64((n-1)/cols)/2) * spacing,
				Y: (float64(col) - float64(cols-1)/2) * spacing,
			}
		}
	case FormationCircle:
		r := spacing * float64(n) / (2 * math.Pi)
		if r < spacing {
			r = spacing
		}
		for i := range offsets {
			a := 2 * math.Pi * float64(i) / float64(n)
			offsets[i] = Vec2{X: r * math.Cos(a), Y: r * math.Sin(a)}
		}
	}
	sin, cos := math.Sin(facing), math.Cos(facing)
	for i, o := range offsets {
		offsets[i] = Vec2{X: o.X*cos - o.Y*sin, Y: o.X*sin + o.Y*cos}
	}
	return offsets
}

// FormUp creates a formation over the given units with the given intent and
// movement target. Units already in another formation are detached from it
// first. Members are stored in ascending id order so slot assignment is
// identical on every client.
func (g *Game) FormUp(members []UnitID, intent Stance, target Vec2) *Formation {
	var live []*Unit
	for _, id := range members {
		if u := g.units[id]; u != nil {
			live = append(live, u)
		}
	}
	if len(live) == 0 {
		return nil
	}
	// UnitsOf and callers supply ids ascending; re-sorting here would hide
	// a caller bug, so trust the order and keep slot assignment stable.

	f := &Formation{
		ID:      FormationID(g.nextEntityID()),
		Type:    ChooseFormationType(intent, live),
		Spacing: 2.0,
		Intent:  intent,
		Target:  &target,
	}
	for _, u := range live {
		if u.Formation != 0 {
			g.RemoveFromFormation(u.Formation, u.ID)
		}
		u.Formation = f.ID
		f.Members = append(f.Members, u.ID)
	}
	g.formations[f.ID] = f
	g.UpdateFormation(f.ID)
	return f
}

// Formation returns the formation with the given id, or nil.
func (g *Game) Formation(id FormationID) *Formation { return g.formations[id] }

// FormationOf returns the formation the unit belongs to, or nil.
func (g *Game) FormationOf(id UnitID) *Formation {
	u := g.units[id]
	if u == nil || u.Formation == 0 {
		return nil
	}
	return g.formations[u.Formation]
}

// UpdateFormation recomputes the formation center from current member
// positions and, when a movement target is set, reissues each member its
// slot target around it. Members in the middle of a fight or a job keep at
// it; only idle and moving members are re-slotted. Formations are not
// fire-and-forget; the tick loop refreshes them as the group moves.
func (g *Game) UpdateFormation(id FormationID) {
	f := g.formations[id]
	if f == nil {
		return
	}
	var sum Vec2
	n := 0
	for _, mid := range f.Members {
		if u := g.units[mid]; u != nil {
			sum = sum.Add(u.Pos)
			n++
		}
	}
	if n == 0 {
		g.disbandFormation(id)
		return
	}
	f.Center = Vec2{X: sum.X / float64(n), Y: sum.Y / float64(n)}

	if f.Target == nil {
		return
	}
	facing := f.Center.AngleTo(*f.Target)
	offsets := FormationOffsets(f.Type, len(f.Members), f.Spacing, facing)
	for i, mid := range f.Members {
		u := g.units[mid]
		if u == nil {
			continue
		}
		if u.State != StateIdle && u.State != StateMoving {
			continue
		}
		t := f.Target.Add(offsets[i])
		if u.Pos.Dist(t) <= g.cfg.ArriveEpsilon {
			continue
		}
		u.MoveTarget = &t
		u.State = StateMoving
	}
}

// AddToFormation joins a unit to an existing formation without disbanding
// it. The unit takes the last slot.
func (g *Game) AddToFormation(id FormationID, unit UnitID) {
	f := g.formations[id]
	u := g.units[unit]
	if f == nil || u == nil {
		return
	}
	if u.Formation != 0 {
		g.RemoveFromFormation(u.Formation, unit)
	}
	u.Formation = id
	f.Members = append(f.Members, unit)
}

// RemoveFromFormation detaches a unit; removing the last member disbands the
// formation.
func (g *Game) RemoveFromFormation(id FormationID, unit UnitID) {
	f := g.formations[id]
	if f == nil {
		return
	}
	for i, mid := range f.Members {
		if mid == unit {
			f.Members = append(f.Members[:i], f.Members[i+1:]...)
			break
		}
	}
	if u := g.units[unit]; u != nil && u.Formation == id {
		u.Formation = 0
	}
	if len(f.Members) == 0 {
		g.disbandFormation(id)
	}
}

// formationRefreshTicks is the re-slot cadence. Coarse on purpose: the
// facing angle jitters if recomputed every tick near arrival.
const formationRefreshTicks = 30

// refreshFormations keeps moving formations coherent and retires the ones
// that have served their purpose. A formation expires when every live
// member is idle, except an assault formation while enemy units or
// buildings remain, which stays up so its members keep acquiring.
func (g *Game) refreshFormations(tick int) {
	for _, id := range g.FormationIDs() {
		if tick%formationRefreshTicks == 0 {
			g.UpdateFormation(id)
		}
		f := g.formations[id]
		if f == nil {
			continue
		}
		allIdle := true
		for _, mid := range f.Members {
			if u := g.units[mid]; u != nil && u.State != StateIdle {
				allIdle = false
				break
			}
		}
		if !allIdle {
			continue
		}
		if f.Intent == StanceAttack && g.hasEnemies(g.formationOwner(f)) {
			continue
		}
		g.disbandFormation(id)
	}
}

func (g *Game) formationOwner(f *Formation) PlayerID {
	for _, mid := range f.Members {
		if u := g.units[mid]; u != nil {
			return u.Owner
		}
	}
	return 0
}

// hasEnemies reports whether any unit or building belongs to another player.
func (g *Game) hasEnemies(p PlayerID) bool {
	for _, u := range g.units {
		if u.Owner != p {
			return true
		}
	}
	for _, b := range g.buildings {
		if b.Owner != p {
			return true
		}
	}
	return false
}

func (g *Game) disbandFormation(id FormationID) {
	f := g.formations[id]
	if f == nil {
		return
	}
	for _, mid := range f.Members {
		if u := g.units[mid]; u != nil && u.Formation == id {
			u.Formation = 0
		}
	}
	delete(g.formations, id)
}

// applyFormationMove issues per-member move targets: each member walks to
// its slot around the formation target, facing derived from the vector from
// the current center toward the target.
func (g *Game) applyFormationMove(f *Formation) {
	if f == nil || f.Target == nil {
		return
	}
	facing := f.Center.AngleTo(*f.Target)
	offsets := FormationOffsets(f.Type, len(f.Members), f.Spacing, facing)
	for i, mid := range f.Members {
		u := g.units[mid]
		if u == nil {
			continue
		}
		t := f.Target.Add(offsets[i])
		u.MoveTarget = &t
		u.State = StateMoving
		u.Target = NoUnit
		u.StructTarget = 0
	}
}
