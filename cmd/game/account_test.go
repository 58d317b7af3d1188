package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"updown-game-go/internal/database"
	"updown-game-go/internal/identity"
	"updown-game-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) GetProfile(ctx context.Context) (*identity.Profile, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).(*identity.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func setupStore(t *testing.T) *database.Store {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	return database.NewStore(db, zap.NewNop())
}

func TestResolveAccount_Local(t *testing.T) {
	store := setupStore(t)

	acc, err := resolveAccount(context.Background(), nil, store, 1000, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, models.LocalAccountID, acc.ExternalID)
	assert.Equal(t, 1000.0, acc.Balance)
}

func TestResolveAccount_StoredBalanceWins(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.EnsureAccount(ctx, models.Account{ExternalID: "u1", Balance: 42})
	require.NoError(t, err)

	client := new(mockIdentity)
	client.On("GetProfile", mock.Anything).Return(&identity.Profile{ID: "u1", Name: "Ann", Balance: decimal.NewFromInt(500)}, nil)

	acc, err := resolveAccount(ctx, client, store, 1000, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 42.0, acc.Balance)
	client.AssertExpectations(t)
}

func TestResolveAccount_NewAccountSeed(t *testing.T) {
	testCases := []struct {
		name          string
		profile       decimal.Decimal
		expectBalance float64
	}{
		{name: "Profile balance", profile: decimal.NewFromInt(500), expectBalance: 500},
		{name: "Falls back to initial balance", profile: decimal.Zero, expectBalance: 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := setupStore(t)
			client := new(mockIdentity)
			client.On("GetProfile", mock.Anything).Return(&identity.Profile{ID: "u2", Verified: true, Balance: tc.profile}, nil)

			acc, err := resolveAccount(context.Background(), client, store, 1000, zap.NewNop())

			require.NoError(t, err)
			assert.Equal(t, "u2", acc.ExternalID)
			assert.True(t, acc.Verified)
			assert.Equal(t, tc.expectBalance, acc.Balance)
		})
	}
}

func TestResolveAccount_IdentityError(t *testing.T) {
	store := setupStore(t)
	client := new(mockIdentity)
	client.On("GetProfile", mock.Anything).Return(nil, identity.ErrUnauthorized)

	_, err := resolveAccount(context.Background(), client, store, 1000, zap.NewNop())

	assert.True(t, errors.Is(err, identity.ErrUnauthorized))
}
