package rts

import (
	"math"
	"testing"
)

func formationGame(t *testing.T, n int, types ...UnitType) (*Game, []UnitID) {
	t.Helper()
	g := NewGame(DefaultConfig(), 1, nil)
	g.AddPlayer(1, nil)
	var ids []UnitID
	for i := 0; i < n; i++ {
		typ := Soldier
		if len(types) > 0 {
			typ = types[i%len(types)]
		}
		u := g.SpawnUnit(1, typ, Vec2{X: float64(i)})
		ids = append(ids, u.ID)
	}
	return g, ids
}

func TestChooseFormationType(t *testing.T) {
	mk := func(n int, types ...UnitType) []*Unit {
		g, ids := formationGame(t, n, types...)
		var units []*Unit
		for _, id := range ids {
			units = append(units, g.Unit(id))
		}
		return units
	}

	tests := []struct {
		name   string
		units  []*Unit
		intent Stance
		want   FormationType
	}{
		{"small group lines up", mk(3), StanceAttack, FormationLine},
		{"attacking mixed group wedges", mk(8, Soldier, Tank), StanceAttack, FormationWedge},
		{"attacking uniform group columns", mk(8), StanceAttack, FormationColumn},
		{"large defensive group boxes", mk(12), StanceDefend, FormationBox},
		{"large defensive group with air circles", mk(12, Soldier, Air), StanceDefend, FormationCircle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseFormationType(tt.intent, tt.units); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormationOffsets_SlotCountAndSpread(t *testing.T) {
	for _, ft := range []FormationType{FormationLine, FormationWedge, FormationBox, FormationCircle, FormationColumn} {
		offsets := FormationOffsets(ft, 9, 2.0, 0)
		if len(offsets) != 9 {
			t.Fatalf("%s: expected 9 offsets, got %d", ft, len(offsets))
		}
		// No two units share a slot.
		for i := 0; i < len(offsets); i++ {
			for j := i + 1; j < len(offsets); j++ {
				if offsets[i].Dist(offsets[j]) < 1e-6 {
					t.Errorf("%s: slots %d and %d coincide", ft, i, j)
				}
			}
		}
	}
}

func TestFormationOffsets_FacingRotates(t *testing.T) {
	flat := FormationOffsets(FormationLine, 3, 2.0, 0)
	rot := FormationOffsets(FormationLine, 3, 2.0, math.Pi/2)
	for i := range flat {
		// A quarter turn maps (x, y) to (-y, x).
		want := Vec2{X: -flat[i].Y, Y: flat[i].X}
		if math.Abs(rot[i].X-want.X) > 1e-9 || math.Abs(rot[i].Y-want.Y) > 1e-9 {
			t.Errorf("slot %d: got %+v, want %+v", i, rot[i], want)
		}
	}
}

func TestFormUp_AssignsMembership(t *testing.T) {
	g, ids := formationGame(t, 5)
	f := g.FormUp(ids, StanceAttack, Vec2{X: 50})
	if f == nil {
		t.Fatal("nil formation")
	}
	if len(f.Members) != 5 {
		t.Fatalf("expected 5 members, got %d", len(f.Members))
	}
	for _, id := range ids {
		if got := g.FormationOf(id); got == nil || got.ID != f.ID {
			t.Errorf("unit %d not linked to formation", id)
		}
	}
}

func TestFormation_RemoveLastMemberDisbands(t *testing.T) {
	g, ids := formationGame(t, 3)
	f := g.FormUp(ids, StanceDefend, Vec2{})
	for _, id := range ids {
		g.RemoveFromFormation(f.ID, id)
	}
	if g.Formation(f.ID) != nil {
		t.Error("formation not disbanded after losing all members")
	}
	for _, id := range ids {
		if g.FormationOf(id) != nil {
			t.Errorf("unit %d still references disbanded formation", id)
		}
	}
}

func TestFormation_DeadMemberDetachedOnPruneTick(t *testing.T) {
	g, ids := formationGame(t, 3)
	f := g.FormUp(ids, StanceDefend, Vec2{})

	g.Unit(ids[0]).HP = 0
	g.Step()

	if g.Unit(ids[0]) != nil {
		t.Fatal("dead unit survived prune")
	}
	got := g.Formation(f.ID)
	if got == nil {
		t.Fatal("formation disbanded with live members remaining")
	}
	for _, mid := range got.Members {
		if mid == ids[0] {
			t.Error("dead unit still listed as member")
		}
	}
	if len(got.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(got.Members))
	}
}

func TestFormation_AddMemberMidFormation(t *testing.T) {
	g, ids := formationGame(t, 4)
	f := g.FormUp(ids[:3], StanceAttack, Vec2{X: 30})
	g.AddToFormation(f.ID, ids[3])
	if len(f.Members) != 4 {
		t.Fatalf("expected 4 members after join, got %d", len(f.Members))
	}
	if got := g.FormationOf(ids[3]); got == nil || got.ID != f.ID {
		t.Error("joined unit not linked")
	}
}

func TestUpdateFormation_RecentersOnMembers(t *testing.T) {
	g, ids := formationGame(t, 2)
	f := g.FormUp(ids, StanceDefend, Vec2{})

	g.Unit(ids[0]).Pos = Vec2{X: 10, Y: 0}
	g.Unit(ids[1]).Pos = Vec2{X: 20, Y: 10}
	g.UpdateFormation(f.ID)

	want := Vec2{X: 15, Y: 5}
	if f.Center.Dist(want) > 1e-9 {
		t.Errorf("center %+v, want %+v", f.Center, want)
	}
}

func TestUpdateFormation_ReissuesSlotTargets(t *testing.T) {
	g, ids := formationGame(t, 3)
	f := g.FormUp(ids, StanceDefend, Vec2{X: 20})

	// Settle everyone, then knock one member off its slot and put another
	// into a fight.
	for _, id := range ids {
		u := g.Unit(id)
		u.State = StateIdle
		u.MoveTarget = nil
	}
	strayed := g.Unit(ids[0])
	strayed.Pos = Vec2{X: -30, Y: -30}
	engaged := g.Unit(ids[2])
	engaged.State = StateAttacking
	engaged.Target = ids[1]

	g.UpdateFormation(f.ID)

	if strayed.State != StateMoving || strayed.MoveTarget == nil {
		t.Fatal("strayed idle member not sent back to its slot")
	}
	if strayed.MoveTarget.Dist(Vec2{X: 20}) > 4*f.Spacing {
		t.Errorf("reissued target %+v too far from formation target", *strayed.MoveTarget)
	}
	if engaged.State != StateAttacking || engaged.MoveTarget != nil {
		t.Error("engaged member pulled out of its fight")
	}
}

func TestStep_DefendFormationExpiresOnArrival(t *testing.T) {
	g, ids := formationGame(t, 2)
	f := g.FormUp(ids, StanceDefend, Vec2{X: 5})

	for i := 0; i < 600; i++ {
		g.Step()
		if g.Formation(f.ID) == nil {
			break
		}
	}
	if g.Formation(f.ID) != nil {
		t.Fatal("defend formation not disbanded after members settled")
	}
	for _, id := range ids {
		if u := g.Unit(id); u.Formation != 0 {
			t.Errorf("unit %d still references expired formation", id)
		}
	}
}

func TestStep_AttackFormationPersistsWhileEnemiesRemain(t *testing.T) {
	g, ids := formationGame(t, 2)
	g.AddPlayer(2, nil)
	g.SpawnBuilding(2, Base, Vec2{X: 200}, true)

	f := g.FormUp(ids, StanceAttack, Vec2{X: 5})
	for i := 0; i < 120; i++ {
		g.Step()
	}
	if g.Formation(f.ID) == nil {
		t.Fatal("assault formation disbanded with enemy structures standing")
	}
}
