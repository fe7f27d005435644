package ai

import (
	"github.com/rs/zerolog/log"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// Engine drives one AI player: each evaluation cycle it refreshes the plan,
// works the next plan step, lets the strategy decide, and turns the chosen
// actions into commands on the ordered queue. The engine issues commands the
// same way a human client would; it has no private channel into the
// simulation.
type Engine struct {
	player   rts.PlayerID
	enemy    rts.PlayerID
	strategy Strategy
	planner  Planner
	sink     rts.EventSink

	lastOwnArmy   int
	lastEnemyArmy int
	lastOpponent  string
	seq           int
}

// NewEngine creates an engine for one AI player. sink may be nil.
func NewEngine(player, enemy rts.PlayerID, strategy Strategy, sink rts.EventSink) *Engine {
	if sink == nil {
		sink = rts.NopSink{}
	}
	return &Engine{player: player, enemy: enemy, strategy: strategy, sink: sink}
}

// Strategy returns the engine's strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Act runs one evaluation cycle and pushes the resulting commands. Called by
// the match driver on the AI cadence, between ticks, never mid-tick.
func (e *Engine) Act(g *rts.Game) {
	tick := g.Tick()
	sit := Evaluate(g, e.player, e.enemy)

	e.observeCombat(sit)

	plan := e.planner.Update(g, e.player, e.enemy, sit)

	var actions []rts.Action
	if step := plan.NextStep(); step != nil && step.Action != nil && affordable(g, e.player, step.Cost) {
		actions = append(actions, step.Action)
		plan.MarkDone()
		e.sink.Record(rts.Event{Tick: tick, Actor: e.player, Action: "plan_step", Reason: step.Label})
	}

	actions = append(actions, e.strategy.Decide(g, e.player, e.enemy)...)
	actions = append(actions, e.houseKeeping(g)...)

	for _, a := range actions {
		e.seq++
		cmd := rts.Command{
			Tick:     tick,
			Player:   e.player,
			IssuedAt: int64(tick), // logical, never wall clock
			Seq:      e.seq,
			Action:   a,
		}
		if err := g.Push(cmd); err != nil {
			// An AI that filtered by affordability should never be here;
			// log it loudly but do not kill the match over it.
			log.Warn().Err(err).Int("player", int(e.player)).Str("action", a.Kind()).Msg("AI command rejected by queue")
			continue
		}
		e.sink.Record(rts.Event{Tick: tick, Actor: e.player, Action: "ai_" + a.Kind(), Reason: e.strategy.Name()})
	}
}

// observeCombat infers combat outcomes from army-count deltas between
// cycles and feeds them to a learning strategy. Losing fewer units than the
// opponent over a bloody cycle counts as a win.
func (e *Engine) observeCombat(sit Situation) {
	ownLost := e.lastOwnArmy - sit.Army
	enemyLost := e.lastEnemyArmy - sit.EnemyArmy
	e.lastOwnArmy = sit.Army
	e.lastEnemyArmy = sit.EnemyArmy

	opponent := Classify(sit)
	defer func() { e.lastOpponent = opponent }()

	if ownLost <= 0 && enemyLost <= 0 {
		return
	}
	l, ok := e.strategy.(Learner)
	if !ok {
		return
	}
	won := enemyLost > ownLost
	l.ObserveOutcome(won, e.lastOpponent)
	e.sink.Record(rts.Event{Tick: sit.Tick, Actor: e.player, Action: "combat_outcome", Reason: outcomeLabel(won)})
}

// houseKeeping puts idle workers back on the nearest mineral node. Mundane,
// but without it every strategy tier starves.
func (e *Engine) houseKeeping(g *rts.Game) []rts.Action {
	var idle []rts.UnitID
	var anchor rts.Vec2
	for _, u := range g.UnitsOf(e.player) {
		if u.Type == rts.Worker && u.State == rts.StateIdle {
			idle = append(idle, u.ID)
			anchor = u.Pos
		}
	}
	if len(idle) == 0 {
		return nil
	}
	node := g.NearestNode(rts.Minerals, anchor)
	if node == nil {
		node = g.NearestNode(rts.Gas, anchor)
	}
	if node == nil {
		return nil
	}
	return []rts.Action{rts.GatherAction{Units: idle, Node: node.ID}}
}

func affordable(g *rts.Game, p rts.PlayerID, c rts.Cost) bool {
	return g.Player(p).CanAfford(c)
}

func outcomeLabel(won bool) string {
	if won {
		return "won"
	}
	return "lost"
}
