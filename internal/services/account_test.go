package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/openarcade/playerbase/internal/services"
	"github.com/openarcade/playerbase/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccountService_RegisterThenExists(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	account, err := svc.Register(ctx, "alice", "hunter2!", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "Alice", account.Nickname)
	assert.EqualValues(t, 0, account.HighScore)
	assert.EqualValues(t, 0, account.GamesPlayed)
	assert.NotEqual(t, "hunter2!", account.PasswordHash)

	exists, err := svc.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.UsernameExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	_, err := svc.Register(ctx, "alice", "hunter2!", "Alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other-pass", "Imposter")
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)
}

func TestAccountService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	_, err := svc.Register(ctx, "", "hunter2!", "Alice")
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.Register(ctx, "   ", "hunter2!", "Alice")
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.Register(ctx, "alice", "", "Alice")
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.Register(ctx, strings.Repeat("a", 65), "hunter2!", "Alice")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestAccountService_RegisterDefaultsNickname(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	account, err := svc.Register(ctx, "alice", "hunter2!", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Nickname)
}

func TestAccountService_RegisterHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	account, err := svc.Register(ctx, "alice", "hunter2!", "Alice")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("hunter2!")))
}

func TestAccountService_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	_, err := svc.Register(ctx, "alice", "hunter2!", "Alice")
	require.NoError(t, err)

	ok, err := svc.VerifyCredentials(ctx, "alice", "hunter2!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyCredentials(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// A missing user reports false, not an error.
	ok, err = svc.VerifyCredentials(ctx, "mallory", "hunter2!")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountService_UpdateNickname(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAccountService(store.NewMemory())

	_, err := svc.Register(ctx, "alice", "hunter2!", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateNickname(ctx, "alice", "Ace"))

	account, err := svc.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Ace", account.Nickname)

	err = svc.UpdateNickname(ctx, "missing", "Ace")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = svc.UpdateNickname(ctx, "alice", "  ")
	assert.ErrorIs(t, err, store.ErrValidation)
}
