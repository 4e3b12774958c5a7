package types

import "time"

// Account represents a player account in the system.
// It contains identity, display, and score aggregate data.
type Account struct {
	// Username is the unique login name chosen by the player.
	// It is immutable once the account is created.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the player's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Nickname is the player's mutable display name.
	Nickname string `json:"nickname" db:"nickname"`

	// HighScore is the highest score recorded for the account. Never negative.
	HighScore int64 `json:"high_score" db:"high_score"`

	// GamesPlayed counts finished games. Monotonically non-decreasing.
	GamesPlayed int64 `json:"games_played" db:"games_played"`

	// AvatarKey is the object-storage key of the player's avatar image,
	// empty when no avatar has been uploaded.
	AvatarKey string `json:"-" db:"avatar_key"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScoreEntry is one leaderboard row.
type ScoreEntry struct {
	Username  string `json:"username" db:"username"`
	HighScore int64  `json:"high_score" db:"high_score"`
}
