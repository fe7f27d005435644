package model

import "time"

// Match statuses.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
	StatusDesynced = "desynced"
)

// Match represents one simulated skirmish.
type Match struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatorID string `json:"creator_id"`
	Status    string `json:"status"` // waiting, active, finished, desynced
	Seed      int64  `json:"seed"`
	TickRate  int    `json:"tick_rate"`
	Winner    int    `json:"winner,omitempty"` // player slot, 0 while undecided

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Players []MatchPlayer `json:"players,omitempty"`
}

// MatchPlayer represents one slot in a match, human or AI.
type MatchPlayer struct {
	MatchID       string    `json:"match_id"`
	Slot          int       `json:"slot"`
	UserID        string    `json:"user_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	IsBot         bool      `json:"is_bot"`
	BotDifficulty string    `json:"bot_difficulty,omitempty"` // easy, medium, hard
	JoinedAt      time.Time `json:"joined_at"`
}

// MatchResult is the archived outcome row written when a match ends.
type MatchResult struct {
	MatchID    string    `json:"match_id"`
	Winner     int       `json:"winner"`
	FinalTick  int       `json:"final_tick"`
	Checksum   uint64    `json:"checksum"`
	FinishedAt time.Time `json:"finished_at"`
}
