package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucylow/quaternion-sub009/internal/ai"
	"github.com/lucylow/quaternion-sub009/internal/logger"
	"github.com/lucylow/quaternion-sub009/internal/metrics"
	"github.com/lucylow/quaternion-sub009/internal/model"
	"github.com/lucylow/quaternion-sub009/internal/repository"
	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotWaiting  = errors.New("match is not in waiting status")
	ErrMatchNotActive   = errors.New("match is not active")
	ErrMatchFull        = errors.New("match has no open slots")
	ErrNotReady         = errors.New("not all players are ready")
	ErrNotCreator       = errors.New("only the creator can do that")
	ErrAlreadyJoined    = errors.New("already joined this match")
	ErrNotInMatch       = errors.New("you are not in this match")
	ErrChecksumMismatch = errors.New("client checksum disagrees with authoritative state")
)

// matchSlots is the number of sides in a skirmish.
const matchSlots = 2

// snapshotInterval is how many ticks pass between cached snapshots; the
// cached copy serves late joiners and resync requests.
const snapshotInterval = 60

// maxMatchTicks caps runaway matches; hitting the cap finishes as a draw.
const maxMatchTicks = 60 * 60 * 60

// MatchOptions carries service-level configuration.
type MatchOptions struct {
	TickRate   int
	AIInterval int
	// AdvisorURL and OnnxModelPath enable the external advisor for hard
	// bots; both empty means the hard tier runs self-contained.
	AdvisorURL    string
	OnnxModelPath string
}

// MatchService owns match lifecycle and the registry of live simulations.
type MatchService struct {
	repo  repository.MatchRepository
	cache repository.MatchCache
	bcast Broadcaster
	mx    *metrics.Metrics
	opts  MatchOptions

	mu   sync.Mutex
	live map[string]*liveMatch
}

// liveMatch is one running simulation and everything attached to it. The
// Game is only touched from the driver goroutine; the service talks to it
// through the driver.
type liveMatch struct {
	id      string
	game    *rts.Game
	driver  *Driver
	sink    *rts.MemorySink
	engines []*ai.Engine
	slots   map[string]rts.PlayerID // userID -> slot
	desyncs map[string]int          // consecutive checksum failures per user; guarded by MatchService.mu
	cancel  context.CancelFunc
	log     zerolog.Logger

	emitted  int // events already published to the replay stream
	finished bool
}

// replayFrame is one tick's worth of replay data.
type replayFrame struct {
	Tick     int         `json:"tick"`
	Checksum uint64      `json:"checksum"`
	Events   []rts.Event `json:"events,omitempty"`
}

// NewMatchService creates a MatchService. bcast and mx may be nil.
func NewMatchService(repo repository.MatchRepository, cache repository.MatchCache, bcast Broadcaster, mx *metrics.Metrics, opts MatchOptions) *MatchService {
	if bcast == nil {
		bcast = NoopBroadcaster{}
	}
	return &MatchService{
		repo:  repo,
		cache: cache,
		bcast: bcast,
		mx:    mx,
		opts:  opts,
		live:  make(map[string]*liveMatch),
	}
}

// CreateMatch creates a waiting match. The creator takes slot 1 unless
// botOnly is set. With vsHuman the remaining slot stays open for JoinMatch;
// otherwise bots fill every remaining slot at the given difficulty. A zero
// seed draws one from the clock.
func (s *MatchService) CreateMatch(ctx context.Context, name, creatorID, displayName string, seed int64, botDifficulty string, botOnly, vsHuman bool) (*model.Match, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if botDifficulty == "" {
		botDifficulty = "easy"
	}

	m, err := s.repo.Create(ctx, name, creatorID, seed, s.opts.TickRate)
	if err != nil {
		return nil, err
	}

	slot := 1
	if !botOnly {
		if err := s.repo.AddPlayer(ctx, m.ID, slot, creatorID, displayName); err != nil {
			return nil, err
		}
		s.markReady(ctx, m.ID, slot)
		slot++
	}
	if botOnly || !vsHuman {
		for ; slot <= matchSlots; slot++ {
			if err := s.repo.AddBot(ctx, m.ID, slot, botDifficulty); err != nil {
				return nil, fmt.Errorf("fill bot slot %d: %w", slot, err)
			}
		}
	}

	return s.repo.FindByID(ctx, m.ID)
}

// JoinMatch claims the open slot in a waiting match and marks the joiner
// ready. The creator still starts the match once every slot is filled.
func (s *MatchService) JoinMatch(ctx context.Context, matchID, userID, displayName string) (*model.Match, error) {
	if n, err := s.repo.PlayerCount(ctx, matchID); err != nil {
		return nil, err
	} else if n >= matchSlots {
		return nil, ErrMatchFull
	}

	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.StatusWaiting {
		return nil, ErrMatchNotWaiting
	}
	taken := make(map[int]bool, len(m.Players))
	for _, p := range m.Players {
		if p.UserID == userID {
			return nil, ErrAlreadyJoined
		}
		taken[p.Slot] = true
	}
	slot := 0
	for c := 1; c <= matchSlots; c++ {
		if !taken[c] {
			slot = c
			break
		}
	}
	if slot == 0 {
		return nil, ErrMatchFull
	}

	if err := s.repo.AddPlayer(ctx, matchID, slot, userID, displayName); err != nil {
		return nil, err
	}
	m, err = s.repo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	claimed := false
	for _, p := range m.Players {
		if p.Slot == slot && p.UserID == userID {
			claimed = true
		}
	}
	if !claimed {
		// The insert keeps the first claimant, so losing the slot means
		// someone else joined between the read and the write.
		return nil, ErrMatchFull
	}

	s.markReady(ctx, matchID, slot)
	s.bcast.BroadcastMatchEvent(matchID, "player_joined", map[string]any{
		"slot":        slot,
		"displayName": displayName,
	})
	return m, nil
}

func (s *MatchService) markReady(ctx context.Context, matchID string, slot int) {
	if err := s.cache.MarkReady(ctx, matchID, slot); err != nil {
		l := logger.ForMatch(matchID)
		l.Warn().Err(err).Int("slot", slot).Msg("Mark ready failed")
	}
}

// GetMatch returns a match by ID.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*model.Match, error) {
	m, err := s.repo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// ListMatches returns matches filtered by lifecycle state.
func (s *MatchService) ListMatches(ctx context.Context, filter string) ([]model.Match, error) {
	switch filter {
	case "active":
		return s.repo.ListActive(ctx)
	case "finished":
		return s.repo.ListFinished(ctx)
	default:
		return s.repo.ListOpen(ctx)
	}
}

// StartMatch boots the simulation for a waiting match. Creator only.
func (s *MatchService) StartMatch(ctx context.Context, matchID, userID string) (*model.Match, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.StatusWaiting {
		return nil, ErrMatchNotWaiting
	}
	if m.CreatorID != userID {
		return nil, ErrNotCreator
	}
	// An open slot reads the same as an unready player: the lobby is not
	// done assembling.
	if len(m.Players) != matchSlots {
		return nil, ErrNotReady
	}
	humans := 0
	for _, p := range m.Players {
		if !p.IsBot {
			humans++
		}
	}
	if humans > 0 {
		ready, err := s.cache.ReadyCount(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if ready < int64(humans) {
			return nil, ErrNotReady
		}
	}

	if err := s.repo.SetStarted(ctx, matchID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.live[matchID]; running {
		return m, nil
	}

	lm := s.buildLiveMatch(m)
	s.live[matchID] = lm

	runCtx, cancel := context.WithCancel(context.Background())
	lm.cancel = cancel
	go lm.driver.Run(runCtx)

	if s.mx != nil {
		s.mx.ActiveMatches.Add(ctx, 1)
	}
	s.bcast.BroadcastMatchEvent(matchID, "match_started", map[string]any{
		"seed":     m.Seed,
		"tickRate": m.TickRate,
	})
	return s.repo.FindByID(ctx, matchID)
}

// buildLiveMatch assembles the game, AI engines, and driver for a match row.
func (s *MatchService) buildLiveMatch(m *model.Match) *liveMatch {
	sink := &rts.MemorySink{}

	ids := make([]rts.PlayerID, 0, matchSlots)
	for _, p := range m.Players {
		ids = append(ids, rts.PlayerID(p.Slot))
	}
	game := rts.NewSkirmish(rts.DefaultConfig(), m.Seed, sink, ids)

	lm := &liveMatch{
		id:    m.ID,
		game:  game,
		sink:  sink,
		slots: make(map[string]rts.PlayerID),
		log:   logger.ForMatch(m.ID),
	}

	for _, p := range m.Players {
		slot := rts.PlayerID(p.Slot)
		if p.IsBot {
			enemy := otherSlot(m.Players, p.Slot)
			strat := s.buildStrategy(p.BotDifficulty, m.Seed+int64(p.Slot))
			lm.engines = append(lm.engines, ai.NewEngine(slot, enemy, strat, sink))
		} else {
			lm.slots[p.UserID] = slot
		}
	}

	lm.driver = NewDriver(game, DriverConfig{
		TickRate:   m.TickRate,
		AIInterval: s.opts.AIInterval,
		Act: func(g *rts.Game) {
			start := time.Now()
			for _, e := range lm.engines {
				e.Act(g)
			}
			if s.mx != nil {
				s.mx.AIDecisionDuration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000)
			}
		},
		AfterTick: func(g *rts.Game, elapsed time.Duration) { s.afterTick(lm, g, elapsed) },
		OnReject:  func(cmd rts.Command, err error) { s.commandRejected(lm, cmd, err) },
		Log:       lm.log,
	})
	return lm
}

// commandRejected runs on the driver goroutine when the queue refuses a
// command. A stale command is a desync signal for the issuing session, so
// that client is routed to the resync path. Bot slots have no session to
// notify.
func (s *MatchService) commandRejected(lm *liveMatch, cmd rts.Command, err error) {
	if s.mx != nil {
		s.mx.CommandsRejected.Add(context.Background(), 1)
	}
	for userID, slot := range lm.slots {
		if slot != cmd.Player {
			continue
		}
		data := map[string]any{"tick": cmd.Tick, "reason": err.Error()}
		if errors.Is(err, rts.ErrStaleCommand) {
			s.bcast.BroadcastUserEvent(userID, lm.id, "desync", data)
		} else {
			s.bcast.BroadcastUserEvent(userID, lm.id, "error", data)
		}
		return
	}
}

// buildStrategy maps difficulty to a strategy, attaching the external
// advisor when configured for the hard tier. Advisor failures at startup
// degrade to the self-contained commander rather than blocking the match.
func (s *MatchService) buildStrategy(difficulty string, seed int64) ai.Strategy {
	strat := ai.ForDifficulty(difficulty, seed)
	if difficulty != "hard" {
		return strat
	}
	if s.opts.OnnxModelPath != "" {
		adv, err := ai.NewOnnxAdvisor(s.opts.OnnxModelPath)
		if err != nil {
			l := logger.Get()
			l.Warn().Err(err).Msg("ONNX advisor unavailable, hard bot runs self-contained")
			return strat
		}
		return ai.NewAdvisedStrategy(strat, adv)
	}
	if s.opts.AdvisorURL != "" {
		return ai.NewAdvisedStrategy(strat, ai.NewHTTPAdvisor(s.opts.AdvisorURL))
	}
	return strat
}

// afterTick runs on the driver goroutine after every Step: publish replay
// frames, cache snapshots, record checksums, and detect the end of the match.
func (s *MatchService) afterTick(lm *liveMatch, g *rts.Game, elapsed time.Duration) {
	tick := g.Tick()
	ctx := context.Background()

	if s.mx != nil {
		s.mx.TicksTotal.Add(ctx, 1)
		s.mx.TickDuration.Record(ctx, float64(elapsed.Microseconds())/1000)
	}

	snap := g.Snapshot()
	frame := replayFrame{Tick: tick, Checksum: snap.Checksum()}
	if n := len(lm.sink.Events); n > lm.emitted {
		frame.Events = append([]rts.Event(nil), lm.sink.Events[lm.emitted:]...)
		lm.emitted = n
	}
	if data, err := json.Marshal(frame); err == nil {
		if err := s.cache.AppendReplay(ctx, lm.id, data); err != nil {
			lm.log.Error().Err(err).Msg("Replay append failed")
		}
		if len(frame.Events) > 0 {
			s.bcast.BroadcastMatchEvent(lm.id, "events", frame)
		}
	}

	if tick%snapshotInterval == 0 {
		if err := s.cache.SaveChecksum(ctx, lm.id, tick, frame.Checksum); err != nil {
			lm.log.Error().Err(err).Msg("Checksum save failed")
		}
		if data, err := json.Marshal(snap); err == nil {
			if err := s.cache.SaveSnapshot(ctx, lm.id, data); err != nil {
				lm.log.Error().Err(err).Msg("Snapshot save failed")
			}
			s.bcast.BroadcastMatchEvent(lm.id, "snapshot", json.RawMessage(data))
		}
	}

	if winner, over := matchOutcome(g, tick); over && !lm.finished {
		lm.finished = true
		s.finishMatch(lm, g, winner)
	}
}

// matchOutcome decides whether the match has ended. A side with no buildings
// left is defeated; the cap ends marathon games as a draw (winner 0).
func matchOutcome(g *rts.Game, tick int) (winner int, over bool) {
	alive := make([]rts.PlayerID, 0, matchSlots)
	for _, pid := range g.PlayerIDs() {
		if len(g.BuildingsOf(pid)) > 0 {
			alive = append(alive, pid)
		} else {
			g.Player(pid).Defeated = true
		}
	}
	if len(alive) == 1 {
		return int(alive[0]), true
	}
	if len(alive) == 0 || tick >= maxMatchTicks {
		return 0, true
	}
	return 0, false
}

// finishMatch archives the outcome and tears the live match down. Runs on
// the driver goroutine; the driver stops itself via Stop.
func (s *MatchService) finishMatch(lm *liveMatch, g *rts.Game, winner int) {
	ctx := context.Background()
	snap := g.Snapshot()

	lm.log.Info().
		Int("winner", winner).
		Int("tick", g.Tick()).
		Uint64("checksum", snap.Checksum()).
		Msg("Match finished")

	if err := s.repo.SetFinished(ctx, lm.id, winner, g.Tick(), snap.Checksum()); err != nil {
		lm.log.Error().Err(err).Msg("Archive outcome failed")
	}
	s.bcast.BroadcastMatchEvent(lm.id, "match_finished", map[string]any{
		"winner":   winner,
		"tick":     g.Tick(),
		"checksum": snap.Checksum(),
	})

	lm.driver.Stop()
	s.teardown(ctx, lm)
}

func (s *MatchService) teardown(ctx context.Context, lm *liveMatch) {
	s.mu.Lock()
	delete(s.live, lm.id)
	s.mu.Unlock()
	if lm.cancel != nil {
		lm.cancel()
	}
	if s.mx != nil {
		s.mx.ActiveMatches.Add(ctx, -1)
	}
}

// IngestCommand accepts one command from a connected client and hands it to
// the match's driver. The action arrives already decoded; tick and issuedAt
// come from the client's lockstep clock.
func (s *MatchService) IngestCommand(ctx context.Context, matchID, userID string, tick int, issuedAt int64, action rts.Action) error {
	lm := s.liveMatch(matchID)
	if lm == nil {
		return ErrMatchNotActive
	}
	slot, ok := lm.slots[userID]
	if !ok {
		return ErrNotInMatch
	}

	if s.mx != nil {
		s.mx.CommandsApplied.Add(ctx, 1)
	}
	err := lm.driver.Enqueue(rts.Command{
		Tick:     tick,
		Player:   slot,
		IssuedAt: issuedAt,
		Action:   action,
	})
	if err != nil && s.mx != nil {
		s.mx.CommandsRejected.Add(ctx, 1)
	}
	return err
}

// maxDesyncStrikes is how many failed verifications in a row one session
// gets. Each failure is answered with a recovery snapshot; a session still
// diverging after that many recoveries cannot hold lockstep, and the match
// is archived as desynced.
const maxDesyncStrikes = 3

// VerifyChecksum compares a client's state checksum for a tick against the
// authoritative record. Disagreement is fatal for that client's session,
// never silently repaired: the client is pushed a desync notice with the
// latest snapshot to rebuild from, while the authoritative simulation keeps
// running for everyone else.
func (s *MatchService) VerifyChecksum(ctx context.Context, matchID, userID string, tick int, clientSum uint64) error {
	want, found, err := s.cache.Checksum(ctx, matchID, tick)
	if err != nil {
		return err
	}
	if !found {
		// Nothing recorded for that tick; clients only verify on
		// snapshot boundaries, so an unknown tick is a client bug, not
		// a desync.
		return nil
	}
	if want == clientSum {
		s.resetDesyncStrikes(matchID, userID)
		return nil
	}

	if s.mx != nil {
		s.mx.DesyncsTotal.Add(ctx, 1)
	}
	log := logger.ForMatch(matchID)
	strikes, live := s.addDesyncStrike(matchID, userID)
	log.Warn().
		Int("tick", tick).
		Str("userId", userID).
		Uint64("want", want).
		Uint64("got", clientSum).
		Int("strikes", strikes).
		Msg("Client checksum diverged")

	if !live || strikes < maxDesyncStrikes {
		snap, _ := s.cache.LatestSnapshot(ctx, matchID)
		s.bcast.BroadcastUserEvent(userID, matchID, "desync", map[string]any{
			"tick":     tick,
			"want":     want,
			"got":      clientSum,
			"snapshot": json.RawMessage(snap),
		})
		return ErrChecksumMismatch
	}

	log.Error().Str("userId", userID).Msg("Session cannot recover lockstep, aborting match")
	if err := s.repo.SetDesynced(ctx, matchID); err != nil {
		log.Error().Err(err).Msg("Mark desynced failed")
	}
	s.bcast.BroadcastMatchEvent(matchID, "desync", map[string]any{
		"tick": tick,
		"want": want,
		"got":  clientSum,
	})
	if lm := s.liveMatch(matchID); lm != nil {
		lm.driver.Stop()
		s.teardown(ctx, lm)
	}
	return ErrChecksumMismatch
}

// addDesyncStrike bumps the consecutive-failure count for one session. The
// second return is false when the match is not live.
func (s *MatchService) addDesyncStrike(matchID, userID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lm := s.live[matchID]
	if lm == nil {
		return 0, false
	}
	if lm.desyncs == nil {
		lm.desyncs = make(map[string]int)
	}
	lm.desyncs[userID]++
	return lm.desyncs[userID], true
}

func (s *MatchService) resetDesyncStrikes(matchID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lm := s.live[matchID]; lm != nil && lm.desyncs != nil {
		delete(lm.desyncs, userID)
	}
}

// Resync returns the latest cached snapshot for a client that fell behind.
func (s *MatchService) Resync(ctx context.Context, matchID string) (json.RawMessage, error) {
	snap, err := s.cache.LatestSnapshot(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrMatchNotActive
	}
	return snap, nil
}

// Replay returns stored replay frames in [from, to], LRANGE semantics.
func (s *MatchService) Replay(ctx context.Context, matchID string, from, to int64) ([]json.RawMessage, error) {
	return s.cache.ReplayFrames(ctx, matchID, from, to)
}

// StopMatch halts an active match early. Creator only; archives as a draw.
func (s *MatchService) StopMatch(ctx context.Context, matchID, userID string) error {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status != model.StatusActive {
		return ErrMatchNotActive
	}
	if m.CreatorID != userID {
		return ErrNotCreator
	}

	lm := s.liveMatch(matchID)
	if lm == nil {
		return s.repo.SetFinished(ctx, matchID, 0, 0, 0)
	}
	lm.driver.Stop()
	if err := s.repo.SetFinished(ctx, matchID, 0, lm.game.Tick(), 0); err != nil {
		return err
	}
	s.bcast.BroadcastMatchEvent(matchID, "match_finished", map[string]any{"winner": 0})
	s.teardown(ctx, lm)
	return nil
}

// DeleteMatch removes a waiting match. Creator only.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID, userID string) error {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status != model.StatusWaiting {
		return ErrMatchNotWaiting
	}
	if m.CreatorID != userID {
		return ErrNotCreator
	}
	if err := s.cache.DeleteMatchData(ctx, matchID); err != nil {
		l := logger.ForMatch(matchID)
		l.Warn().Err(err).Msg("Cache cleanup failed on delete")
	}
	return s.repo.Delete(ctx, matchID)
}

// SlotFor resolves a user's slot in a live match.
func (s *MatchService) SlotFor(matchID, userID string) (int, bool) {
	lm := s.liveMatch(matchID)
	if lm == nil {
		return 0, false
	}
	slot, ok := lm.slots[userID]
	return int(slot), ok
}

// CurrentTick reports the live tick, or -1 when the match is not running.
func (s *MatchService) CurrentTick(matchID string) int {
	lm := s.liveMatch(matchID)
	if lm == nil {
		return -1
	}
	// Reading the tick without the driver goroutine is a benign race on an
	// int used only for display; commands still validate on the driver.
	return lm.game.Tick()
}

// Shutdown stops every live match, for server teardown.
func (s *MatchService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lm := range s.live {
		lm.driver.Stop()
		if lm.cancel != nil {
			lm.cancel()
		}
	}
	s.live = make(map[string]*liveMatch)
}

func (s *MatchService) liveMatch(matchID string) *liveMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[matchID]
}

func otherSlot(players []model.MatchPlayer, slot int) rts.PlayerID {
	for _, p := range players {
		if p.Slot != slot {
			return rts.PlayerID(p.Slot)
		}
	}
	return rts.PlayerID(slot)
}
