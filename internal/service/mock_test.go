package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lucylow/quaternion-sub009/internal/model"
)

// mockMatchRepo is an in-memory MatchRepository for service tests.
type mockMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[string]*model.Match
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{matches: make(map[string]*model.Match)}
}

func (r *mockMatchRepo) Create(ctx context.Context, name, creatorID string, seed int64, tickRate int) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := &model.Match{
		ID:        fmt.Sprintf("match-%d", r.nextID),
		Name:      name,
		CreatorID: creatorID,
		Status:    model.StatusWaiting,
		Seed:      seed,
		TickRate:  tickRate,
		CreatedAt: time.Now(),
	}
	r.matches[m.ID] = m
	return copyMatch(m), nil
}

func (r *mockMatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, nil
	}
	return copyMatch(m), nil
}

func (r *mockMatchRepo) listByStatus(status string) ([]model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Match
	for _, m := range r.matches {
		if m.Status == status {
			out = append(out, *copyMatch(m))
		}
	}
	return out, nil
}

func (r *mockMatchRepo) ListOpen(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(model.StatusWaiting)
}

func (r *mockMatchRepo) ListActive(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(model.StatusActive)
}

func (r *mockMatchRepo) ListFinished(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(model.StatusFinished)
}

func (r *mockMatchRepo) AddPlayer(ctx context.Context, matchID string, slot int, userID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return fmt.Errorf("no match %s", matchID)
	}
	for _, p := range m.Players {
		if p.Slot == slot {
			return nil
		}
	}
	m.Players = append(m.Players, model.MatchPlayer{
		MatchID: matchID, Slot: slot, UserID: userID, DisplayName: displayName,
	})
	return nil
}

func (r *mockMatchRepo) AddBot(ctx context.Context, matchID string, slot int, difficulty string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return fmt.Errorf("no match %s", matchID)
	}
	m.Players = append(m.Players, model.MatchPlayer{
		MatchID: matchID, Slot: slot, IsBot: true, BotDifficulty: difficulty,
	})
	return nil
}

func (r *mockMatchRepo) PlayerCount(ctx context.Context, matchID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return 0, nil
	}
	return len(m.Players), nil
}

func (r *mockMatchRepo) SetStarted(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok && m.Status == model.StatusWaiting {
		m.Status = model.StatusActive
		now := time.Now()
		m.StartedAt = &now
	}
	return nil
}

func (r *mockMatchRepo) SetFinished(ctx context.Context, matchID string, winner, finalTick int, checksum uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.Status = model.StatusFinished
		m.Winner = winner
		now := time.Now()
		m.FinishedAt = &now
	}
	return nil
}

func (r *mockMatchRepo) SetDesynced(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.Status = model.StatusDesynced
	}
	return nil
}

func (r *mockMatchRepo) Delete(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, matchID)
	return nil
}

func (r *mockMatchRepo) status(matchID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		return m.Status
	}
	return ""
}

func copyMatch(m *model.Match) *model.Match {
	cp := *m
	cp.Players = append([]model.MatchPlayer(nil), m.Players...)
	return &cp
}

// mockMatchCache is an in-memory MatchCache for service tests.
type mockMatchCache struct {
	mu        sync.Mutex
	snapshots map[string]json.RawMessage
	replays   map[string][]json.RawMessage
	checksums map[string]map[int]uint64
	ready     map[string]map[int]bool
}

func newMockMatchCache() *mockMatchCache {
	return &mockMatchCache{
		snapshots: make(map[string]json.RawMessage),
		replays:   make(map[string][]json.RawMessage),
		checksums: make(map[string]map[int]uint64),
		ready:     make(map[string]map[int]bool),
	}
}

func (c *mockMatchCache) SaveSnapshot(ctx context.Context, matchID string, snap json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[matchID] = snap
	return nil
}

func (c *mockMatchCache) LatestSnapshot(ctx context.Context, matchID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[matchID], nil
}

func (c *mockMatchCache) AppendReplay(ctx context.Context, matchID string, frame json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replays[matchID] = append(c.replays[matchID], frame)
	return nil
}

func (c *mockMatchCache) ReplayFrames(ctx context.Context, matchID string, from, to int64) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.replays[matchID]
	n := int64(len(frames))
	if from < 0 {
		from += n
	}
	if to < 0 {
		to += n
	}
	if from < 0 {
		from = 0
	}
	if to >= n {
		to = n - 1
	}
	if from > to || n == 0 {
		return nil, nil
	}
	return append([]json.RawMessage(nil), frames[from:to+1]...), nil
}

func (c *mockMatchCache) ReplayLen(ctx context.Context, matchID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.replays[matchID])), nil
}

func (c *mockMatchCache) SaveChecksum(ctx context.Context, matchID string, tick int, sum uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checksums[matchID] == nil {
		c.checksums[matchID] = make(map[int]uint64)
	}
	c.checksums[matchID][tick] = sum
	return nil
}

func (c *mockMatchCache) Checksum(ctx context.Context, matchID string, tick int) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum, ok := c.checksums[matchID][tick]
	return sum, ok, nil
}

func (c *mockMatchCache) MarkReady(ctx context.Context, matchID string, slot int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready[matchID] == nil {
		c.ready[matchID] = make(map[int]bool)
	}
	c.ready[matchID][slot] = true
	return nil
}

func (c *mockMatchCache) ReadyCount(ctx context.Context, matchID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.ready[matchID])), nil
}

func (c *mockMatchCache) DeleteMatchData(ctx context.Context, matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, matchID)
	delete(c.replays, matchID)
	delete(c.checksums, matchID)
	delete(c.ready, matchID)
	return nil
}

// recordingBroadcaster captures broadcast events for assertions.
type recordingBroadcaster struct {
	mu         sync.Mutex
	events     []string
	userEvents []string // "userID:eventType"
}

func (b *recordingBroadcaster) BroadcastMatchEvent(matchID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func (b *recordingBroadcaster) BroadcastUserEvent(userID, matchID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userEvents = append(b.userEvents, userID+":"+eventType)
}

func (b *recordingBroadcaster) hasUser(userID, eventType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.userEvents {
		if e == userID+":"+eventType {
			return true
		}
	}
	return false
}

func (b *recordingBroadcaster) has(eventType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e == eventType {
			return true
		}
	}
	return false
}
