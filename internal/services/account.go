package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openarcade/playerbase/internal/store"
	"github.com/openarcade/playerbase/types"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLen = 64

// dummyHash levels the cost of a failed login: verifying a missing user
// still pays for one bcrypt comparison, so the two failure modes are not
// timing-distinguishable. Hash of an unguessable constant.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account types.Account) (types.Account, error)
	GetByUsername(ctx context.Context, username string) (types.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateNickname(ctx context.Context, username, nickname string) error
	UpdateAvatarKey(ctx context.Context, username, avatarKey string) error
}

// AccountService encapsulates account use-cases.
type AccountService struct {
	repo AccountRepository
}

func NewAccountService(repo AccountRepository) *AccountService {
	return &AccountService{repo: repo}
}

// Register creates a new account with a bcrypt-hashed password and
// zeroed score counters.
func (s *AccountService) Register(ctx context.Context, username, password, nickname string) (types.Account, error) {
	username = strings.TrimSpace(username)
	nickname = strings.TrimSpace(nickname)
	if err := validateUsername(username); err != nil {
		return types.Account{}, err
	}
	if password == "" {
		return types.Account{}, fmt.Errorf("%w: password is required", store.ErrValidation)
	}
	if nickname == "" {
		nickname = username
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, err
	}

	return s.repo.Create(ctx, types.Account{
		Username:     username,
		PasswordHash: string(hashed),
		Nickname:     nickname,
	})
}

// VerifyCredentials reports whether the password matches the stored hash.
// A missing username reports false, not an error.
func (s *AccountService) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return false, nil
		}
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *AccountService) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.repo.UsernameExists(ctx, username)
}

func (s *AccountService) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *AccountService) UpdateNickname(ctx context.Context, username, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("%w: nickname is required", store.ErrValidation)
	}
	return s.repo.UpdateNickname(ctx, username, nickname)
}

func (s *AccountService) UpdateAvatarKey(ctx context.Context, username, avatarKey string) error {
	return s.repo.UpdateAvatarKey(ctx, username, avatarKey)
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", store.ErrValidation)
	}
	if len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username exceeds %d characters", store.ErrValidation, maxUsernameLen)
	}
	return nil
}
