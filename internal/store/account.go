package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openarcade/playerbase/types"
)

// AccountRepository handles persistence for player accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with zeroed score counters. It returns
// ErrDuplicateUsername when the username is already taken.
func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.HighScore = 0
	account.GamesPlayed = 0

	const query = `
		INSERT INTO accounts (username, password_hash, nickname, high_score, games_played, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, '', $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		account.Username,
		account.PasswordHash,
		account.Nickname,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, ErrDuplicateUsername
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	const query = `
		SELECT username, password_hash, nickname, high_score, games_played, avatar_key, created_at, updated_at
		FROM accounts
		WHERE username = $1`
	var account types.Account
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username,
		&account.PasswordHash,
		&account.Nickname,
		&account.HighScore,
		&account.GamesPlayed,
		&account.AvatarKey,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

// UsernameExists reports whether an account with the username is present.
// A missing account is not an error; only store failures are.
func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *AccountRepository) UpdateNickname(ctx context.Context, username, nickname string) error {
	const query = `
		UPDATE accounts
		SET nickname = $1,
			updated_at = $2
		WHERE username = $3`
	result, err := r.db.ExecContext(ctx, query, nickname, time.Now(), username)
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

func (r *AccountRepository) UpdateAvatarKey(ctx context.Context, username, avatarKey string) error {
	const query = `
		UPDATE accounts
		SET avatar_key = $1,
			updated_at = $2
		WHERE username = $3`
	result, err := r.db.ExecContext(ctx, query, avatarKey, time.Now(), username)
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
