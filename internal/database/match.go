// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchResultRow mirrors the payload of a match_result fact.
type MatchResultRow struct {
	WinnerTeam int             `json:"winner_team"`
	Totals     [2]int          `json:"totals"`
	Rounds     int             `json:"rounds"`
	Players    json.RawMessage `json:"players"`
	CreatedAt  time.Time       `json:"created_at"`
}

// UpsertRoundResultTx stores one finished round keyed by (match, round)
// inside the caller's transaction. Redelivery of the same fact
// overwrites identically, so replays from the queue are harmless.
func UpsertRoundResultTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, round int, data []byte) error {
	upsertMatch := `
		INSERT INTO matches (id, status, created_at)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertMatch, matchID); err != nil {
		return err
	}

	q := `
		INSERT INTO match_rounds (match_id, round, data, recorded_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (match_id, round)
		DO UPDATE SET data = EXCLUDED.data, recorded_at = NOW()
	`
	_, err := tx.Exec(ctx, q, matchID, round, data)
	return err
}

// UpsertMatchResultTx finalizes a match row with the winner and totals
// inside the caller's transaction.
func UpsertMatchResultTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, res MatchResultRow) error {
	q := `
		INSERT INTO matches (id, status, winner_team, team1_total, team2_total, rounds, players, created_at, end_time)
		VALUES ($1, 'completed', $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = 'completed',
			winner_team = EXCLUDED.winner_team,
			team1_total = EXCLUDED.team1_total,
			team2_total = EXCLUDED.team2_total,
			rounds = EXCLUDED.rounds,
			players = EXCLUDED.players,
			end_time = NOW()
	`
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := tx.Exec(ctx, q, matchID, res.WinnerTeam, res.Totals[0], res.Totals[1], res.Rounds, res.Players, createdAt)
	return err
}

// MarkMatchAbandoned flags a match that stopped emitting facts without
// a final result.
func MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE matches
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, matchID)
		return e
	})
}
