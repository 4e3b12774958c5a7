package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openarcade/playerbase/types"
)

// Memory is an in-memory implementation of the account, score, and
// friendship repositories with the same error semantics as the SQL
// implementations. It backs unit tests and local development without a
// database. Safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	accounts    map[string]types.Account
	friendships map[[2]string]types.Friendship
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[string]types.Account),
		friendships: make(map[[2]string]types.Friendship),
	}
}

func (m *Memory) Create(ctx context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.Username]; ok {
		return types.Account{}, ErrDuplicateUsername
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.HighScore = 0
	account.GamesPlayed = 0
	m.accounts[account.Username] = account
	return account, nil
}

func (m *Memory) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[username]
	if !ok {
		return types.Account{}, ErrNotFound
	}
	return account, nil
}

func (m *Memory) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.accounts[username]
	return ok, nil
}

func (m *Memory) UpdateNickname(ctx context.Context, username, nickname string) error {
	return m.updateAccount(username, func(account *types.Account) {
		account.Nickname = nickname
	})
}

func (m *Memory) UpdateAvatarKey(ctx context.Context, username, avatarKey string) error {
	return m.updateAccount(username, func(account *types.Account) {
		account.AvatarKey = avatarKey
	})
}

func (m *Memory) updateAccount(username string, mutate func(*types.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[username]
	if !ok {
		return ErrNotFound
	}
	mutate(&account)
	account.UpdatedAt = time.Now()
	m.accounts[username] = account
	return nil
}

func (m *Memory) GetHighScore(ctx context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[username]
	if !ok {
		return 0, ErrNotFound
	}
	return account.HighScore, nil
}

func (m *Memory) SetHighScore(ctx context.Context, username string, score int64) error {
	return m.updateAccount(username, func(account *types.Account) {
		account.HighScore = score
	})
}

func (m *Memory) IncrementGamesPlayed(ctx context.Context, username string) error {
	return m.updateAccount(username, func(account *types.Account) {
		account.GamesPlayed++
	})
}

func (m *Memory) RecordIfHigher(ctx context.Context, username string, latestScore int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[username]
	if !ok {
		return false, ErrNotFound
	}
	if latestScore < account.HighScore {
		return false, nil
	}
	account.HighScore = latestScore
	account.UpdatedAt = time.Now()
	m.accounts[username] = account
	return true, nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]types.ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]types.ScoreEntry, 0, len(m.accounts))
	for _, account := range m.accounts {
		entries = append(entries, types.ScoreEntry{
			Username:  account.Username,
			HighScore: account.HighScore,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].HighScore > entries[j].HighScore
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) CreateRequest(ctx context.Context, initiator, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, username := range []string{initiator, recipient} {
		if _, ok := m.accounts[username]; !ok {
			return ErrNotFound
		}
	}

	low, high := types.PairKey(initiator, recipient)
	key := [2]string{low, high}
	if _, ok := m.friendships[key]; ok {
		return ErrAlreadyExists
	}
	now := time.Now()
	m.friendships[key] = types.Friendship{
		UserLow:    low,
		UserHigh:   high,
		Relation:   types.RelationPending,
		ActionUser: initiator,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, userA, userB string) (types.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := types.PairKey(userA, userB)
	friendship, ok := m.friendships[[2]string{low, high}]
	if !ok {
		return types.Friendship{}, ErrNotFound
	}
	return friendship, nil
}

func (m *Memory) Accept(ctx context.Context, actor, counterpart string) error {
	return m.transition(actor, counterpart, types.RelationAccepted)
}

func (m *Memory) Decline(ctx context.Context, actor, counterpart string) error {
	return m.transition(actor, counterpart, types.RelationDeclined)
}

func (m *Memory) transition(actor, counterpart string, to types.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := types.PairKey(actor, counterpart)
	key := [2]string{low, high}
	friendship, ok := m.friendships[key]
	if !ok {
		return ErrNotFound
	}
	if friendship.Relation != types.RelationPending {
		return ErrInvalidTransition
	}
	friendship.Relation = to
	friendship.ActionUser = actor
	friendship.UpdatedAt = time.Now()
	m.friendships[key] = friendship
	return nil
}

func (m *Memory) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := types.PairKey(userA, userB)
	friendship, ok := m.friendships[[2]string{low, high}]
	return ok && friendship.Relation == types.RelationAccepted, nil
}

func (m *Memory) ListFriends(ctx context.Context, user string) ([]string, error) {
	return m.listCounterparts(user, types.RelationAccepted, nil)
}

func (m *Memory) ListPending(ctx context.Context, user string, incoming bool) ([]string, error) {
	return m.listCounterparts(user, types.RelationPending, func(f types.Friendship) bool {
		if incoming {
			return f.ActionUser != user
		}
		return f.ActionUser == user
	})
}

func (m *Memory) listCounterparts(user string, relation types.Relation, match func(types.Friendship) bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usernames := make([]string, 0)
	for _, friendship := range m.friendships {
		if friendship.Relation != relation {
			continue
		}
		counterpart := friendship.Counterpart(user)
		if counterpart == "" {
			continue
		}
		if match != nil && !match(friendship) {
			continue
		}
		usernames = append(usernames, counterpart)
	}
	sort.Strings(usernames)
	return usernames, nil
}
