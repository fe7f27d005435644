package rts

import "testing"

func cmd(tick int, player PlayerID, issuedAt int64, seq int) Command {
	return Command{Tick: tick, Player: player, IssuedAt: issuedAt, Seq: seq, Action: MoveAction{}}
}

func TestCommandQueue_TotalOrder(t *testing.T) {
	q := NewCommandQueue(100)
	cmds := []Command{
		cmd(5, 2, 30, 1),
		cmd(5, 1, 30, 1),
		cmd(5, 1, 10, 2),
		cmd(5, 3, 20, 1),
		cmd(5, 1, 30, 0),
	}
	for _, c := range cmds {
		if err := q.Push(c, 0); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	got := q.Drain(5)
	want := []Command{
		cmd(5, 1, 10, 2),
		cmd(5, 3, 20, 1),
		cmd(5, 1, 30, 0),
		cmd(5, 1, 30, 1),
		cmd(5, 2, 30, 1),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Player != want[i].Player || got[i].IssuedAt != want[i].IssuedAt || got[i].Seq != want[i].Seq {
			t.Errorf("position %d: got {p%d t%d s%d}, want {p%d t%d s%d}",
				i, got[i].Player, got[i].IssuedAt, got[i].Seq,
				want[i].Player, want[i].IssuedAt, want[i].Seq)
		}
	}
}

func TestCommandQueue_ArrivalOrderIrrelevant(t *testing.T) {
	base := []Command{
		cmd(3, 1, 100, 0),
		cmd(3, 2, 50, 0),
		cmd(3, 1, 50, 1),
		cmd(3, 3, 75, 0),
	}
	perms := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	var reference []Command
	for pi, perm := range perms {
		q := NewCommandQueue(100)
		for _, idx := range perm {
			if err := q.Push(base[idx], 0); err != nil {
				t.Fatalf("push: %v", err)
			}
		}
		got := q.Drain(3)
		if pi == 0 {
			reference = got
			continue
		}
		for i := range reference {
			if got[i].Player != reference[i].Player || got[i].IssuedAt != reference[i].IssuedAt || got[i].Seq != reference[i].Seq {
				t.Errorf("perm %d: position %d differs from reference order", pi, i)
			}
		}
	}
}

func TestCommandQueue_StaleRejected(t *testing.T) {
	q := NewCommandQueue(100)
	if err := q.Push(cmd(4, 1, 0, 0), 5); err != ErrStaleCommand {
		t.Errorf("expected ErrStaleCommand, got %v", err)
	}
	// The current tick itself is still pending, not stale.
	if err := q.Push(cmd(5, 1, 0, 0), 5); err != nil {
		t.Errorf("current tick should be accepted: %v", err)
	}
}

func TestCommandQueue_BeyondWindowRejected(t *testing.T) {
	q := NewCommandQueue(10)
	if err := q.Push(cmd(10, 1, 0, 0), 0); err != nil {
		t.Errorf("edge of window should be accepted, got %v", err)
	}
	if err := q.Push(cmd(11, 1, 0, 0), 0); err != ErrBeyondWindow {
		t.Errorf("expected ErrBeyondWindow, got %v", err)
	}
}

func TestCommandQueue_DrainRemoves(t *testing.T) {
	q := NewCommandQueue(100)
	q.Push(cmd(1, 1, 0, 0), 0)
	q.Push(cmd(2, 1, 0, 0), 0)
	if n := q.PendingCount(); n != 2 {
		t.Fatalf("expected 2 pending, got %d", n)
	}
	q.Drain(1)
	if n := q.PendingCount(); n != 1 {
		t.Errorf("expected 1 pending after drain, got %d", n)
	}
	if got := q.Drain(1); got != nil {
		t.Errorf("second drain should be empty, got %d", len(got))
	}
}
