package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lucylow/quaternion-sub009/internal/ai"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		matchup  string
		numGames int
		workers  int
		maxTicks int
		interval int
		seed     int64
		jsonOut  bool
	)

	flag.StringVar(&matchup, "matchup", "easy-vs-easy", "Tier matchup (e.g. hard-vs-easy, or a single tier for a mirror)")
	flag.IntVar(&numGames, "n", 1, "Number of matches to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel matches)")
	flag.IntVar(&maxTicks, "max-ticks", 60*60*30, "Max ticks before draw")
	flag.IntVar(&interval, "ai-interval", 30, "Ticks between AI decisions")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	tierA, tierB := parseMatchup(matchup)
	label := fmt.Sprintf("%s-vs-%s", tierA, tierB)

	if seed == 0 {
		seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
		log.Info().Int64("seed", seed).Msg("Using random base seed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	results := make([]*ai.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	start := time.Now()
	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			cfg := ai.ArenaConfig{
				Name:        fmt.Sprintf("%s-%d", label, idx+1),
				DifficultyA: tierA,
				DifficultyB: tierB,
				Seed:        seed + int64(idx),
				MaxTicks:    maxTicks,
				AIInterval:  interval,
			}

			result, err := ai.RunMatch(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Int("match", idx+1).Msg("Match failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().
				Int("match", idx+1).
				Int("winner", result.Winner).
				Int("ticks", result.FinalTick).
				Str("checksum", fmt.Sprintf("%016x", result.Checksum)).
				Msg("Match completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, tierA, tierB, maxTicks, errCount)
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("Done")
}

// parseMatchup handles "hard-vs-easy" style strings. A bare tier means a
// mirror match of that tier.
func parseMatchup(s string) (string, string) {
	parts := strings.SplitN(s, "-vs-", 2)
	if len(parts) != 2 {
		return s, s
	}
	return parts[0], parts[1]
}

func printSummary(results []*ai.ArenaResult, tierA, tierB string, maxTicks, errCount int) {
	type stats struct {
		wins      int
		totalArmy int
		totalTick int
	}

	slots := map[int]*stats{1: {}, 2: {}}
	tiers := map[int]string{1: tierA, 2: tierB}
	completed := 0
	draws := 0

	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		if r.Winner == 0 {
			draws++
		} else {
			slots[r.Winner].wins++
		}
		for slot, s := range slots {
			s.totalArmy += r.Army[slot]
			s.totalTick += r.FinalTick
		}
	}

	fmt.Printf("\nResults (%d matches, max %d ticks):\n", completed, maxTicks)
	if errCount > 0 {
		fmt.Printf("  (%d matches failed)\n", errCount)
	}
	for slot := 1; slot <= 2; slot++ {
		s := slots[slot]
		avgArmy := 0.0
		if completed > 0 {
			avgArmy = float64(s.totalArmy) / float64(completed)
		}
		fmt.Printf("  player %d (%s):  %d wins  -- avg final army: %.1f\n",
			slot, tiers[slot], s.wins, avgArmy)
	}
	fmt.Printf("  draws: %d\n", draws)
}

func printJSON(results []*ai.ArenaResult, total, errCount int) {
	out := struct {
		Total   int               `json:"total"`
		Errors  int               `json:"errors"`
		Results []*ai.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
