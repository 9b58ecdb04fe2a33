package history

import (
	"context"
	"database/sql"
	"time"
)

// Result is one finished game.
type Result struct {
	GameID    string    `json:"gameId"`
	PlayerID  string    `json:"playerId"`
	Mode      string    `json:"mode"`
	Date      string    `json:"date"`
	Pairs     int       `json:"pairs"`
	Moves     int       `json:"moves"`
	Mistakes  int       `json:"mistakes"`
	ElapsedMs int64     `json:"elapsedMs"`
	Finished  time.Time `json:"finishedAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r. A second insert for the same game is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	if r.Finished.IsZero() {
		r.Finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results(game_id, player_id, mode, date, pairs, moves, mistakes, elapsed_ms, finished_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		r.GameID, r.PlayerID, r.Mode, r.Date, r.Pairs, r.Moves, r.Mistakes, r.ElapsedMs,
		r.Finished.UTC().Format(time.RFC3339),
	)
	return err
}

// Filter narrows a leaderboard query. Zero fields match everything.
type Filter struct {
	Mode  string
	Date  string
	Pairs int
}

// Leaderboard returns the best results: fewest mistakes, then fastest, then earliest.
func (s *Store) Leaderboard(ctx context.Context, f Filter, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `
		SELECT game_id, player_id, mode, date, pairs, moves, mistakes, elapsed_ms, finished_at
		FROM results
		WHERE (?1 = '' OR mode = ?1) AND (?2 = '' OR date = ?2) AND (?3 = 0 OR pairs = ?3)
		ORDER BY mistakes ASC, elapsed_ms ASC, finished_at ASC
		LIMIT ?4`, f.Mode, f.Date, f.Pairs, limit)
}

// ForPlayer returns a player's most recent results.
func (s *Store) ForPlayer(ctx context.Context, playerID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, `
		SELECT game_id, player_id, mode, date, pairs, moves, mistakes, elapsed_ms, finished_at
		FROM results
		WHERE player_id = ?
		ORDER BY finished_at DESC
		LIMIT ?`, playerID, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var r Result
		var finished string
		if err := rows.Scan(&r.GameID, &r.PlayerID, &r.Mode, &r.Date, &r.Pairs,
			&r.Moves, &r.Mistakes, &r.ElapsedMs, &finished); err != nil {
			return nil, err
		}
		r.Finished, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
