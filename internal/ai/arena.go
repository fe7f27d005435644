package ai

import (
	"context"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// ArenaConfig describes one headless AI-vs-AI match.
type ArenaConfig struct {
	Name        string
	DifficultyA string
	DifficultyB string
	Seed        int64
	MaxTicks    int
	AIInterval  int
}

// ArenaResult is the outcome of one headless match.
type ArenaResult struct {
	Name      string         `json:"name"`
	Winner    int            `json:"winner"` // slot, 0 = draw
	FinalTick int            `json:"finalTick"`
	Checksum  uint64         `json:"checksum"`
	Army      map[int]int    `json:"army"`
	Minerals  map[int]int    `json:"minerals"`
	Events    int            `json:"events"`
	Strategy  map[int]string `json:"strategy"`
}

// RunMatch simulates a full AI-vs-AI match as fast as the CPU allows, with
// no wall clock in the loop. The same seed and difficulties always produce
// the same result.
func RunMatch(ctx context.Context, cfg ArenaConfig) (*ArenaResult, error) {
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = 60 * 60 * 30
	}
	if cfg.AIInterval <= 0 {
		cfg.AIInterval = 30
	}

	sink := &rts.MemorySink{}
	game := rts.NewSkirmish(rts.DefaultConfig(), cfg.Seed, sink, []rts.PlayerID{1, 2})

	stratA := ForDifficulty(cfg.DifficultyA, cfg.Seed+1)
	stratB := ForDifficulty(cfg.DifficultyB, cfg.Seed+2)
	engines := []*Engine{
		NewEngine(1, 2, stratA, sink),
		NewEngine(2, 1, stratB, sink),
	}

	winner := 0
	for game.Tick() < cfg.MaxTicks {
		if game.Tick()%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if game.Tick()%cfg.AIInterval == 0 {
			for _, e := range engines {
				e.Act(game)
			}
		}
		game.Step()

		if w, over := arenaOutcome(game); over {
			winner = w
			break
		}
	}

	res := &ArenaResult{
		Name:      cfg.Name,
		Winner:    winner,
		FinalTick: game.Tick(),
		Checksum:  game.Snapshot().Checksum(),
		Army:      make(map[int]int),
		Minerals:  make(map[int]int),
		Events:    len(sink.Events),
		Strategy: map[int]string{
			1: stratA.Name(),
			2: stratB.Name(),
		},
	}
	for _, pid := range game.PlayerIDs() {
		res.Army[int(pid)] = armyCount(game, pid)
		res.Minerals[int(pid)] = game.Player(pid).Balances[rts.Minerals]
	}
	return res, nil
}

// arenaOutcome mirrors the server's end condition: a side with no buildings
// left has lost.
func arenaOutcome(g *rts.Game) (winner int, over bool) {
	alive := make([]rts.PlayerID, 0, 2)
	for _, pid := range g.PlayerIDs() {
		if len(g.BuildingsOf(pid)) > 0 {
			alive = append(alive, pid)
		}
	}
	if len(alive) == 1 {
		return int(alive[0]), true
	}
	if len(alive) == 0 {
		return 0, true
	}
	return 0, false
}
