package repository

import (
	"context"
	"encoding/json"

	"github.com/lucylow/quaternion-sub009/internal/model"
)

// MatchRepository defines match and player persistence operations.
type MatchRepository interface {
	Create(ctx context.Context, name, creatorID string, seed int64, tickRate int) (*model.Match, error)
	FindByID(ctx context.Context, id string) (*model.Match, error)
	ListOpen(ctx context.Context) ([]model.Match, error)
	ListActive(ctx context.Context) ([]model.Match, error)
	ListFinished(ctx context.Context) ([]model.Match, error)
	AddPlayer(ctx context.Context, matchID string, slot int, userID, displayName string) error
	AddBot(ctx context.Context, matchID string, slot int, difficulty string) error
	PlayerCount(ctx context.Context, matchID string) (int, error)
	SetStarted(ctx context.Context, matchID string) error
	SetFinished(ctx context.Context, matchID string, winner, finalTick int, checksum uint64) error
	SetDesynced(ctx context.Context, matchID string) error
	Delete(ctx context.Context, matchID string) error
}

// MatchCache defines live match state operations (Redis): the latest
// snapshot, the append-only replay stream, and per-tick checksums for
// desync arbitration.
type MatchCache interface {
	SaveSnapshot(ctx context.Context, matchID string, snap json.RawMessage) error
	LatestSnapshot(ctx context.Context, matchID string) (json.RawMessage, error)
	AppendReplay(ctx context.Context, matchID string, frame json.RawMessage) error
	ReplayFrames(ctx context.Context, matchID string, from, to int64) ([]json.RawMessage, error)
	ReplayLen(ctx context.Context, matchID string) (int64, error)
	SaveChecksum(ctx context.Context, matchID string, tick int, sum uint64) error
	Checksum(ctx context.Context, matchID string, tick int) (uint64, bool, error)
	MarkReady(ctx context.Context, matchID string, slot int) error
	ReadyCount(ctx context.Context, matchID string) (int64, error)
	DeleteMatchData(ctx context.Context, matchID string) error
}
