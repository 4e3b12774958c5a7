package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openarcade/playerbase/types"
)

// ScoreRepository handles high scores and games-played counters. It
// shares the accounts table with AccountRepository but is composed by
// callers as an independent component.
type ScoreRepository struct {
	db *sql.DB
}

func NewScoreRepository(db *sql.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// GetHighScore returns the stored high score, or ErrNotFound when the
// username is absent. A zero score is only ever a real zero.
func (r *ScoreRepository) GetHighScore(ctx context.Context, username string) (int64, error) {
	const query = `SELECT high_score FROM accounts WHERE username = $1`
	var score int64
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return score, nil
}

// SetHighScore overwrites the stored high score unconditionally.
func (r *ScoreRepository) SetHighScore(ctx context.Context, username string, score int64) error {
	const query = `
		UPDATE accounts
		SET high_score = $1,
			updated_at = $2
		WHERE username = $3`
	result, err := r.db.ExecContext(ctx, query, score, time.Now(), username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementGamesPlayed adds exactly 1 to the counter as a single atomic
// update, so concurrent callers cannot lose increments.
func (r *ScoreRepository) IncrementGamesPlayed(ctx context.Context, username string) error {
	const query = `
		UPDATE accounts
		SET games_played = games_played + 1,
			updated_at = $1
		WHERE username = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now(), username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordIfHigher stores latestScore when it is greater than or equal to
// the current high score. The comparison and write are one conditional
// statement; there is no read-then-write window. It returns true when the
// row was written, and ErrNotFound when the username is absent.
//
// Equal scores count as a successful record. That matches the existing
// contract callers rely on, even though the write is then a no-op.
func (r *ScoreRepository) RecordIfHigher(ctx context.Context, username string, latestScore int64) (bool, error) {
	const query = `
		UPDATE accounts
		SET high_score = $1,
			updated_at = $2
		WHERE username = $3 AND high_score <= $1`
	result, err := r.db.ExecContext(ctx, query, latestScore, time.Now(), username)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Nothing updated: either the stored score is higher, or there is no
	// such account. Distinguish the two explicitly.
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, username).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// Leaderboard returns all accounts ordered by high score descending.
// Tie order between equal scores is unspecified. An empty store yields
// an empty slice.
func (r *ScoreRepository) Leaderboard(ctx context.Context, limit int) ([]types.ScoreEntry, error) {
	const query = `
		SELECT username, high_score
		FROM accounts
		ORDER BY high_score DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.ScoreEntry, 0, limit)
	for rows.Next() {
		var entry types.ScoreEntry
		if err := rows.Scan(&entry.Username, &entry.HighScore); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
