package main

import (
	"context"
	"fmt"

	"updown-game-go/internal/database"
	"updown-game-go/internal/identity"
	"updown-game-go/internal/models"

	"go.uber.org/zap"
)

// resolveAccount finds the account the session plays for. Without an identity client the local
// demo account is used. A stored balance always wins; a new account starts from the profile
// balance when it is positive and from initialBalance otherwise.
func resolveAccount(ctx context.Context, client identity.ClientInterface, store *database.Store, initialBalance float64, log *zap.Logger) (*models.Account, error) {
	if client == nil {
		return store.EnsureAccount(ctx, models.Account{
			ExternalID: models.LocalAccountID,
			Name:       "Demo",
			Verified:   true,
			Balance:    initialBalance,
		})
	}

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not resolve player: %w", err)
	}
	log.Info("Player authenticated", zap.String("id", profile.ID), zap.String("name", profile.Name))

	seed := initialBalance
	if profile.Balance.IsPositive() {
		seed = profile.Balance.InexactFloat64()
	}
	return store.EnsureAccount(ctx, models.Account{
		ExternalID: profile.ID,
		Name:       profile.Name,
		Email:      profile.Email,
		Role:       profile.Role,
		Verified:   profile.Verified,
		Balance:    seed,
	})
}
