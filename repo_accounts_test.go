package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-stateless-auth"
)

func TestAccountStoreCreateAndLoad(t *testing.T) {
	clock := newFakeClock()
	store := auth.NewAccountStore(newTestDB(t), auth.WithAccountsClock(clock.Now))
	ctx := context.Background()

	created, err := store.Create(ctx, &auth.Account{
		Email:                       "  Mixed@Example.com ",
		PasswordHash:                "hash",
		Roles:                       auth.NewRoles(auth.RoleUnverified, auth.RoleAdmin),
		CredentialsFreshSinceMillis: 42,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "mixed@example.com", created.Email)
	assert.Equal(t, int64(1), created.Version)

	byID, err := store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, auth.Roles{auth.RoleAdmin, auth.RoleUnverified}, byID.Roles)
	assert.Equal(t, int64(42), byID.CredentialsFreshSinceMillis)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := store.LoadByEmail(ctx, "MIXED@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestAccountStoreNotFound(t *testing.T) {
	store := auth.NewAccountStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.LoadByID(ctx, uuid.New())
	assert.True(t, auth.IsNotFoundError(err))

	_, err = store.LoadByEmail(ctx, "nobody@example.com")
	assert.True(t, auth.IsNotFoundError(err))
}

func TestAccountStoreRejectsDuplicateEmail(t *testing.T) {
	store := auth.NewAccountStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, &auth.Account{Email: "a@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = store.Create(ctx, &auth.Account{Email: "A@example.com", PasswordHash: "h"})
	assert.True(t, auth.IsConflictError(err))
}

func TestAccountStoreOptimisticSave(t *testing.T) {
	store := auth.NewAccountStore(newTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, &auth.Account{Email: "a@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	first, err := store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := store.LoadByID(ctx, created.ID)
	require.NoError(t, err)

	first.PasswordHash = "first"
	first.CredentialsFreshSinceMillis = 100
	saved, err := store.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	second.PasswordHash = "second"
	_, err = store.Save(ctx, second)
	require.Error(t, err)
	assert.True(t, auth.IsStaleAccountError(err))

	current, err := store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", current.PasswordHash)
	assert.Equal(t, int64(100), current.CredentialsFreshSinceMillis)
	assert.Equal(t, int64(2), current.Version)
}

func TestAccountStoreRunInTxRollsBack(t *testing.T) {
	store := auth.NewAccountStore(newTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, &auth.Account{Email: "a@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	err = store.RunInTx(ctx, func(ctx context.Context, tx auth.AccountStore) error {
		account, err := tx.LoadByID(ctx, created.ID)
		if err != nil {
			return err
		}
		account.PasswordHash = "changed"
		if _, err := tx.Save(ctx, account); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	current, err := store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", current.PasswordHash)
	assert.Equal(t, int64(1), current.Version)
}

func TestAccountStoreRunInTxHonoursCancellation(t *testing.T) {
	store := auth.NewAccountStore(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.RunInTx(ctx, func(context.Context, auth.AccountStore) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
