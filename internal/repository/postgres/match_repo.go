package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucylow/quaternion-sub009/internal/model"
)

// MatchRepo handles match and match_player database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a new match in waiting status.
func (r *MatchRepo) Create(ctx context.Context, name, creatorID string, seed int64, tickRate int) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (name, creator_id, seed, tick_rate)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, creator_id, status, seed, tick_rate, created_at`,
		name, creatorID, seed, tickRate,
	).Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &m.Seed, &m.TickRate, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &m, nil
}

// FindByID returns a match by ID with its players, or nil when absent.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	var winner sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, creator_id, status, seed, tick_rate, winner, created_at, started_at, finished_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &m.Seed, &m.TickRate, &winner,
		&m.CreatedAt, &m.StartedAt, &m.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	m.Winner = int(winner.Int64)

	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Players = players
	return &m, nil
}

// ListOpen returns matches in "waiting" status.
func (r *MatchRepo) ListOpen(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(ctx, model.StatusWaiting, "created_at DESC")
}

// ListActive returns running matches.
func (r *MatchRepo) ListActive(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(ctx, model.StatusActive, "started_at")
}

// ListFinished returns finished matches, most recent first.
func (r *MatchRepo) ListFinished(ctx context.Context) ([]model.Match, error) {
	return r.listByStatus(ctx, model.StatusFinished, "finished_at DESC")
}

func (r *MatchRepo) listByStatus(ctx context.Context, status, order string) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, creator_id, status, seed, tick_rate, winner, created_at, started_at, finished_at
		 FROM matches WHERE status = $1 ORDER BY `+order+` LIMIT 100`, status)
	if err != nil {
		return nil, fmt.Errorf("list %s matches: %w", status, err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var winner sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &m.Seed, &m.TickRate, &winner,
			&m.CreatedAt, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Winner = int(winner.Int64)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListPlayers returns all players in a match ordered by slot.
func (r *MatchRepo) ListPlayers(ctx context.Context, matchID string) ([]model.MatchPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, slot, user_id, display_name, is_bot, bot_difficulty, joined_at
		 FROM match_players WHERE match_id = $1 ORDER BY slot`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.MatchPlayer
	for rows.Next() {
		var p model.MatchPlayer
		var userID, name, difficulty sql.NullString
		if err := rows.Scan(&p.MatchID, &p.Slot, &userID, &name, &p.IsBot, &difficulty, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.UserID = userID.String
		p.DisplayName = name.String
		p.BotDifficulty = difficulty.String
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddPlayer claims a slot for a human player.
func (r *MatchRepo) AddPlayer(ctx context.Context, matchID string, slot int, userID, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, slot, user_id, display_name) VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		matchID, slot, userID, displayName,
	)
	if err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	return nil
}

// AddBot fills a slot with an AI player at the given difficulty.
func (r *MatchRepo) AddBot(ctx context.Context, matchID string, slot int, difficulty string) error {
	if difficulty == "" {
		difficulty = "easy"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, slot, is_bot, bot_difficulty) VALUES ($1, $2, true, $3)
		 ON CONFLICT DO NOTHING`,
		matchID, slot, difficulty,
	)
	if err != nil {
		return fmt.Errorf("add bot: %w", err)
	}
	return nil
}

// PlayerCount returns the number of filled slots.
func (r *MatchRepo) PlayerCount(ctx context.Context, matchID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_players WHERE match_id = $1`, matchID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("player count: %w", err)
	}
	return count, nil
}

// SetStarted flips a waiting match to active.
func (r *MatchRepo) SetStarted(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'active', started_at = now() WHERE id = $1 AND status = 'waiting'`,
		matchID,
	)
	if err != nil {
		return fmt.Errorf("set started: %w", err)
	}
	return nil
}

// SetFinished records the outcome and the final checksum in one transaction.
// The checksum is stored as the bit pattern in a BIGINT column.
func (r *MatchRepo) SetFinished(ctx context.Context, matchID string, winner, finalTick int, checksum uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE matches SET status = 'finished', winner = $1, finished_at = now() WHERE id = $2`,
		winner, matchID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO match_results (match_id, winner, final_tick, checksum, finished_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (match_id) DO UPDATE SET winner = $2, final_tick = $3, checksum = $4`,
		matchID, winner, finalTick, int64(checksum),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return tx.Commit()
}

// SetDesynced marks a match aborted by checksum disagreement.
func (r *MatchRepo) SetDesynced(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'desynced', finished_at = now() WHERE id = $1`,
		matchID,
	)
	if err != nil {
		return fmt.Errorf("set desynced: %w", err)
	}
	return nil
}

// Delete removes a match and all associated data (cascades to players and results).
func (r *MatchRepo) Delete(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}
