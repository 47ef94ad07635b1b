package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/assets"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// Fixed width so finished_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Game is one archived game with its final standings.
type Game struct {
	ID          string          `json:"gameId"`
	RoomCode    string          `json:"roomCode"`
	HostID      string          `json:"hostId"`
	TotalRounds int             `json:"totalRounds"`
	FinishedAt  time.Time       `json:"finishedAt"`
	Standings   []room.Standing `json:"standings"`
}

// LeaderRow aggregates results per display name across games.
type LeaderRow struct {
	DisplayName string `json:"displayName"`
	Games       int    `json:"games"`
	Wins        int    `json:"wins"`
	BestScore   int    `json:"bestScore"`
	TotalScore  int    `json:"totalScore"`
}

// Store archives finished games in SQLite.
type Store struct{ db *sql.DB }

// Open connects to dsn and applies the embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Record stores res. Recording the same game twice is a no-op.
func (s *Store) Record(ctx context.Context, res room.Result) error {
	id := res.GameID
	if id == uuid.Nil {
		id = uuid.New()
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO games (id, room_code, host_id, total_rounds, finished_at)
        VALUES (?, ?, ?, ?, ?)`,
		id.String(), res.Code, res.HostID, res.TotalRounds, finished.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return nil
	}

	for _, st := range res.Standings {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO game_standings
                (game_id, participant_id, display_name, position, total_score, rounds_won)
            VALUES (?, ?, ?, ?, ?, ?)`,
			id.String(), st.ParticipantID, st.DisplayName, st.Position, st.TotalScore, st.RoundsWon,
		); err != nil {
			return fmt.Errorf("insert standing %s: %w", st.ParticipantID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Str("game", id.String()).Str("room", res.Code).Int("standings", len(res.Standings)).Msg("game archived")
	return nil
}

// Recent lists the latest finished games, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Game, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, room_code, host_id, total_rounds, finished_at
        FROM games
        ORDER BY finished_at DESC, id
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Game, 0, limit)
	for rows.Next() {
		var (
			g  Game
			ts string
		)
		if err := rows.Scan(&g.ID, &g.RoomCode, &g.HostID, &g.TotalRounds, &ts); err != nil {
			return nil, err
		}
		if g.FinishedAt, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("game %s finished_at: %w", g.ID, err)
		}
		g.Standings = []room.Standing{}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := s.loadStandings(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadStandings(ctx context.Context, g *Game) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT participant_id, display_name, position, total_score, rounds_won
        FROM game_standings
        WHERE game_id=?
        ORDER BY position, display_name`, g.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var st room.Standing
		if err := rows.Scan(&st.ParticipantID, &st.DisplayName, &st.Position, &st.TotalScore, &st.RoundsWon); err != nil {
			return err
		}
		g.Standings = append(g.Standings, st)
	}
	return rows.Err()
}

// Leaderboard ranks display names by their best single-game total.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderRow, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
        SELECT display_name,
               COUNT(*)                                   AS games,
               SUM(CASE WHEN position = 1 THEN 1 ELSE 0 END) AS wins,
               MAX(total_score)                           AS best,
               SUM(total_score)                           AS total
        FROM game_standings
        GROUP BY display_name
        ORDER BY best DESC, wins DESC, display_name
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderRow, 0, limit)
	for rows.Next() {
		var r LeaderRow
		if err := rows.Scan(&r.DisplayName, &r.Games, &r.Wins, &r.BestScore, &r.TotalScore); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
