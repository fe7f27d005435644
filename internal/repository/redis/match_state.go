package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis match state.
func snapshotKey(matchID string) string { return "match:" + matchID + ":snapshot" }
func replayKey(matchID string) string   { return "match:" + matchID + ":replay" }
func checksumKey(matchID string) string { return "match:" + matchID + ":checksums" }
func readyKey(matchID string) string    { return "match:" + matchID + ":ready" }

// SaveSnapshot stores the latest snapshot JSON for late joiners and resyncs.
func (c *Client) SaveSnapshot(ctx context.Context, matchID string, snap json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(matchID), []byte(snap), 0).Err()
}

// LatestSnapshot retrieves the most recent snapshot, or nil when none exists.
func (c *Client) LatestSnapshot(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// AppendReplay pushes one frame onto the match's replay stream. Frames are
// appended in tick order by the single tick driver, so the list is the
// complete ordered history of the match.
func (c *Client) AppendReplay(ctx context.Context, matchID string, frame json.RawMessage) error {
	return c.rdb.RPush(ctx, replayKey(matchID), []byte(frame)).Err()
}

// ReplayFrames returns frames in [from, to], inclusive, using LRANGE
// semantics (negative indexes count from the end).
func (c *Client) ReplayFrames(ctx context.Context, matchID string, from, to int64) ([]json.RawMessage, error) {
	vals, err := c.rdb.LRange(ctx, replayKey(matchID), from, to).Result()
	if err != nil {
		return nil, fmt.Errorf("replay range: %w", err)
	}
	frames := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		frames[i] = json.RawMessage(v)
	}
	return frames, nil
}

// ReplayLen returns how many frames the replay stream holds.
func (c *Client) ReplayLen(ctx context.Context, matchID string) (int64, error) {
	return c.rdb.LLen(ctx, replayKey(matchID)).Result()
}

// SaveChecksum records the authoritative state checksum for a tick.
func (c *Client) SaveChecksum(ctx context.Context, matchID string, tick int, sum uint64) error {
	return c.rdb.HSet(ctx, checksumKey(matchID), strconv.Itoa(tick), strconv.FormatUint(sum, 10)).Err()
}

// Checksum returns the stored checksum for a tick. The second return is
// false when no checksum was recorded for that tick.
func (c *Client) Checksum(ctx context.Context, matchID string, tick int) (uint64, bool, error) {
	v, err := c.rdb.HGet(ctx, checksumKey(matchID), strconv.Itoa(tick)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get checksum: %w", err)
	}
	sum, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse checksum: %w", err)
	}
	return sum, true, nil
}

// MarkReady adds a slot to the ready set used to gate match start.
func (c *Client) MarkReady(ctx context.Context, matchID string, slot int) error {
	return c.rdb.SAdd(ctx, readyKey(matchID), slot).Err()
}

// ReadyCount returns how many slots have marked ready.
func (c *Client) ReadyCount(ctx context.Context, matchID string) (int64, error) {
	return c.rdb.SCard(ctx, readyKey(matchID)).Result()
}

// DeleteMatchData removes all Redis data for a match (on match end).
func (c *Client) DeleteMatchData(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx,
		snapshotKey(matchID),
		replayKey(matchID),
		checksumKey(matchID),
		readyKey(matchID),
	).Err()
}
