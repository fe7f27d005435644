package rts

import (
	"errors"
	"sort"
)

var (
	// ErrStaleCommand means the command targets an already-simulated tick.
	// For a lockstep session this is a fatal desync signal: the client that
	// produced it must resynchronize from a snapshot, not retry.
	ErrStaleCommand = errors.New("rts: command for already-simulated tick")

	// ErrBeyondWindow means the command targets a tick past the lookahead
	// window. The caller should hold it and re-push closer to the tick.
	ErrBeyondWindow = errors.New("rts: command beyond lookahead window")
)

// CommandQueue buffers commands per target tick and imposes the total order
// before they are applied: tick ascending, then IssuedAt, then Player, then
// Seq. This sort is the single point where network arrival nondeterminism is
// squeezed out; no other subsystem may order anything by arrival.
type CommandQueue struct {
	window  int
	pending map[int][]Command
}

// NewCommandQueue creates a queue with the given lookahead window in ticks.
func NewCommandQueue(window int) *CommandQueue {
	return &CommandQueue{
		window:  window,
		pending: make(map[int][]Command),
	}
}

// Push buffers a command. currentTick is the next tick to be simulated;
// commands for earlier ticks are rejected as stale.
func (q *CommandQueue) Push(c Command, currentTick int) error {
	if c.Tick < currentTick {
		return ErrStaleCommand
	}
	if c.Tick > currentTick+q.window {
		return ErrBeyondWindow
	}
	q.pending[c.Tick] = append(q.pending[c.Tick], c)
	return nil
}

// Drain removes and returns all commands for tick in total order.
func (q *CommandQueue) Drain(tick int) []Command {
	cmds := q.pending[tick]
	if len(cmds) == 0 {
		return nil
	}
	delete(q.pending, tick)
	sort.Slice(cmds, func(i, j int) bool {
		a, b := cmds[i], cmds[j]
		if a.IssuedAt != b.IssuedAt {
			return a.IssuedAt < b.IssuedAt
		}
		if a.Player != b.Player {
			return a.Player < b.Player
		}
		return a.Seq < b.Seq
	})
	return cmds
}

// PendingCount returns the number of buffered commands across all ticks.
func (q *CommandQueue) PendingCount() int {
	n := 0
	for _, cmds := range q.pending {
		n += len(cmds)
	}
	return n
}
