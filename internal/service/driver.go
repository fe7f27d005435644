package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// ErrDriverBacklog means the command channel is full; the caller should tell
// the client to retry rather than block a tick on it.
var ErrDriverBacklog = errors.New("tick driver command backlog full")

// maxCatchUpTicks bounds how many logical ticks one wall-clock wakeup may
// execute. A long GC pause or scheduler stall runs the backlog in chunks
// instead of freezing the loop on one enormous burst.
const maxCatchUpTicks = 120

// Driver runs one match's simulation at a fixed logical rate. All access to
// the Game goes through the driver goroutine: commands arrive on a channel,
// ticks execute in order, and no logical tick is ever skipped. When the wall
// clock gets ahead, the driver executes every owed tick in sequence, so the
// command stream keeps its exact tick alignment.
type Driver struct {
	game     *rts.Game
	interval time.Duration

	// aiInterval is how many ticks pass between AI cycles; act runs the
	// engines between ticks, never during one.
	aiInterval int
	act        func(g *rts.Game)
	afterTick  func(g *rts.Game, elapsed time.Duration)
	onReject   func(cmd rts.Command, err error)

	commands chan rts.Command
	done     chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

// DriverConfig carries the knobs for one driver.
type DriverConfig struct {
	TickRate   int // logical ticks per second
	AIInterval int // ticks between AI evaluation cycles
	Act        func(g *rts.Game)
	AfterTick  func(g *rts.Game, elapsed time.Duration)
	// OnReject is called on the driver goroutine when the queue refuses a
	// command, so the issuing session can be told to resynchronize.
	OnReject func(cmd rts.Command, err error)
	Log      zerolog.Logger
}

// NewDriver creates a driver for the game. Run must be called exactly once.
func NewDriver(game *rts.Game, cfg DriverConfig) *Driver {
	if cfg.TickRate <= 0 {
		cfg.TickRate = game.Config().TickRate
	}
	if cfg.AIInterval <= 0 {
		cfg.AIInterval = 30
	}
	return &Driver{
		game:       game,
		interval:   time.Second / time.Duration(cfg.TickRate),
		aiInterval: cfg.AIInterval,
		act:        cfg.Act,
		afterTick:  cfg.AfterTick,
		onReject:   cfg.OnReject,
		commands:   make(chan rts.Command, 256),
		done:       make(chan struct{}),
		log:        cfg.Log,
	}
}

// Enqueue hands a command to the driver goroutine. Never blocks; a full
// backlog is the client's problem, not the tick loop's.
func (d *Driver) Enqueue(cmd rts.Command) error {
	select {
	case <-d.done:
		return errors.New("match stopped")
	default:
	}
	select {
	case d.commands <- cmd:
		return nil
	default:
		return ErrDriverBacklog
	}
}

// Stop halts the loop. Safe to call more than once.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Stopped reports whether Stop was called.
func (d *Driver) Stopped() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Run executes the tick loop until the context ends or Stop is called.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	start := time.Now()
	executed := 0

	d.log.Info().
		Dur("interval", d.interval).
		Int("aiInterval", d.aiInterval).
		Msg("Tick driver started")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int("ticks", executed).Msg("Tick driver stopped by context")
			return
		case <-d.done:
			d.log.Info().Int("ticks", executed).Msg("Tick driver stopped")
			return
		case cmd := <-d.commands:
			d.push(cmd)
		case <-ticker.C:
			// Drain any commands that raced the tick so they land on the
			// earliest tick they can.
			d.drainCommands()

			owed := int(time.Since(start)/d.interval) - executed
			if owed > maxCatchUpTicks {
				d.log.Warn().Int("owed", owed).Msg("Tick backlog exceeds catch-up bound, chunking")
				owed = maxCatchUpTicks
			}
			for i := 0; i < owed; i++ {
				d.stepOnce()
				executed++
				if d.Stopped() {
					return
				}
			}
		}
	}
}

func (d *Driver) drainCommands() {
	for {
		select {
		case cmd := <-d.commands:
			d.push(cmd)
		default:
			return
		}
	}
}

func (d *Driver) push(cmd rts.Command) {
	// Seq is server-assigned from arrival order so two commands from the
	// same player on the same tick keep a total order.
	cmd.Seq = d.game.NextSeq()
	// A command aimed behind the clock is never re-aimed; quietly moving
	// it would make its effective tick depend on server arrival timing.
	// The queue rejects it and the issuing session gets the news.
	if err := d.game.Push(cmd); err != nil {
		d.log.Warn().Err(err).
			Int("tick", cmd.Tick).
			Int("player", int(cmd.Player)).
			Str("kind", cmd.Action.Kind()).
			Msg("Command rejected by queue")
		if d.onReject != nil {
			d.onReject(cmd, err)
		}
	}
}

func (d *Driver) stepOnce() {
	if d.act != nil && d.game.Tick()%d.aiInterval == 0 {
		d.act(d.game)
	}
	start := time.Now()
	d.game.Step()
	if d.afterTick != nil {
		d.afterTick(d.game, time.Since(start))
	}
}
