package types

import "time"

// Relation is the lifecycle state of a friendship. Exactly three values
// are valid; Pending is the only non-terminal state.
type Relation string

const (
	RelationPending  Relation = "pending"
	RelationAccepted Relation = "accepted"
	RelationDeclined Relation = "declined"
)

// Valid reports whether r is one of the three defined relation values.
func (r Relation) Valid() bool {
	switch r {
	case RelationPending, RelationAccepted, RelationDeclined:
		return true
	}
	return false
}

// Friendship is the single record kept per unordered pair of accounts.
// UserLow and UserHigh are the pair in lexicographic order, which gives
// the pair a canonical key regardless of who initiated the request.
type Friendship struct {
	UserLow  string   `json:"user_low" db:"user_low"`
	UserHigh string   `json:"user_high" db:"user_high"`
	Relation Relation `json:"relation" db:"relation"`

	// ActionUser is the username that performed the most recent
	// transition: the initiator while pending, the accepter or
	// decliner afterwards.
	ActionUser string `json:"action_user" db:"action_user"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PairKey returns the two usernames in canonical (low, high) order.
func PairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Counterpart returns the other member of the pair. It returns the empty
// string when user is not part of the friendship.
func (f Friendship) Counterpart(user string) string {
	switch user {
	case f.UserLow:
		return f.UserHigh
	case f.UserHigh:
		return f.UserLow
	}
	return ""
}
