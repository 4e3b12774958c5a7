package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openarcade/playerbase/types"
)

// FriendshipRepository handles the pairwise friendship lifecycle. Rows
// are keyed by the canonical (user_low, user_high) pair, so the same two
// accounts can never hold duplicate or asymmetric records.
type FriendshipRepository struct {
	db *sql.DB
}

func NewFriendshipRepository(db *sql.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

// CreateRequest inserts a pending friendship initiated by initiator. It
// returns ErrAlreadyExists when any record for the pair is present,
// whatever its state, and ErrNotFound when either username has no
// account.
func (r *FriendshipRepository) CreateRequest(ctx context.Context, initiator, recipient string) error {
	low, high := types.PairKey(initiator, recipient)
	now := time.Now()

	const query = `
		INSERT INTO friendships (user_low, user_high, relation, action_user, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		low,
		high,
		types.RelationPending,
		initiator,
		now,
		now,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Get returns the friendship record for the unordered pair.
func (r *FriendshipRepository) Get(ctx context.Context, userA, userB string) (types.Friendship, error) {
	low, high := types.PairKey(userA, userB)

	const query = `
		SELECT user_low, user_high, relation, action_user, created_at, updated_at
		FROM friendships
		WHERE user_low = $1 AND user_high = $2`
	var friendship types.Friendship
	err := r.db.QueryRowContext(ctx, query, low, high).Scan(
		&friendship.UserLow,
		&friendship.UserHigh,
		&friendship.Relation,
		&friendship.ActionUser,
		&friendship.CreatedAt,
		&friendship.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Friendship{}, ErrNotFound
		}
		return types.Friendship{}, err
	}
	return friendship, nil
}

// Accept transitions the pair's record from pending to accepted and
// records actor as the action user.
func (r *FriendshipRepository) Accept(ctx context.Context, actor, counterpart string) error {
	return r.transition(ctx, actor, counterpart, types.RelationAccepted)
}

// Decline transitions the pair's record from pending to declined and
// records actor as the action user.
func (r *FriendshipRepository) Decline(ctx context.Context, actor, counterpart string) error {
	return r.transition(ctx, actor, counterpart, types.RelationDeclined)
}

// transition performs the pending-only state change as one conditional
// update. When no row matches it distinguishes a missing record from a
// record that already left the pending state.
func (r *FriendshipRepository) transition(ctx context.Context, actor, counterpart string, to types.Relation) error {
	low, high := types.PairKey(actor, counterpart)

	const query = `
		UPDATE friendships
		SET relation = $1,
			action_user = $2,
			updated_at = $3
		WHERE user_low = $4 AND user_high = $5 AND relation = $6`
	result, err := r.db.ExecContext(ctx, query, to, actor, time.Now(), low, high, types.RelationPending)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if _, err := r.Get(ctx, actor, counterpart); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// AreFriends reports whether the pair's record exists in the accepted
// state. Pending, declined, and absent all report false.
func (r *FriendshipRepository) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	low, high := types.PairKey(userA, userB)

	const query = `
		SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE user_low = $1 AND user_high = $2 AND relation = $3
		)`
	var friends bool
	if err := r.db.QueryRowContext(ctx, query, low, high, types.RelationAccepted).Scan(&friends); err != nil {
		return false, err
	}
	return friends, nil
}

// ListFriends returns the usernames holding an accepted relation with
// user, from either side of the pair.
func (r *FriendshipRepository) ListFriends(ctx context.Context, user string) ([]string, error) {
	const query = `
		SELECT CASE WHEN user_low = $1 THEN user_high ELSE user_low END
		FROM friendships
		WHERE (user_low = $1 OR user_high = $1) AND relation = $2
		ORDER BY 1`
	return r.listCounterparts(ctx, query, user, types.RelationAccepted)
}

// ListPending returns the pending counterparts for user. With incoming
// true it lists requests sent to user; otherwise requests user sent.
func (r *FriendshipRepository) ListPending(ctx context.Context, user string, incoming bool) ([]string, error) {
	// action_user is the initiator while a record is pending, so the
	// direction check is an action_user comparison.
	var query string
	if incoming {
		query = `
			SELECT CASE WHEN user_low = $1 THEN user_high ELSE user_low END
			FROM friendships
			WHERE (user_low = $1 OR user_high = $1) AND relation = $2 AND action_user <> $1
			ORDER BY 1`
	} else {
		query = `
			SELECT CASE WHEN user_low = $1 THEN user_high ELSE user_low END
			FROM friendships
			WHERE (user_low = $1 OR user_high = $1) AND relation = $2 AND action_user = $1
			ORDER BY 1`
	}
	return r.listCounterparts(ctx, query, user, types.RelationPending)
}

func (r *FriendshipRepository) listCounterparts(ctx context.Context, query, user string, relation types.Relation) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, user, relation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usernames := make([]string, 0)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return usernames, nil
}
