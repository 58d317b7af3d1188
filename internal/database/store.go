package database

import (
	"context"
	"errors"
	"fmt"

	"updown-game-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps the account and round queries.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// EnsureAccount returns the account for profile.ExternalID, refreshing its profile fields.
// A new account is created with profile.Balance; an existing one keeps its stored balance.
func (s *Store) EnsureAccount(ctx context.Context, profile models.Account) (*models.Account, error) {
	var account models.Account
	res := s.db.WithContext(ctx).Where("external_id = ?", profile.ExternalID).Limit(1).Find(&account)
	switch {
	case res.Error != nil:
		return nil, fmt.Errorf("failed to load account '%s': %w", profile.ExternalID, res.Error)
	case res.RowsAffected == 0:
		account = profile
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return nil, fmt.Errorf("failed to create account '%s': %w", profile.ExternalID, err)
		}
		s.logger.Info("Account created",
			zap.String("external_id", account.ExternalID),
			zap.Float64("balance", account.Balance))
		return &account, nil
	}

	updates := map[string]interface{}{
		"name":     profile.Name,
		"email":    profile.Email,
		"role":     profile.Role,
		"verified": profile.Verified,
	}
	if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to refresh account '%s': %w", profile.ExternalID, err)
	}
	return &account, nil
}

// Account looks up an account by its external id.
func (s *Store) Account(ctx context.Context, externalID string) (*models.Account, error) {
	var account models.Account
	res := s.db.WithContext(ctx).Where("external_id = ?", externalID).Limit(1).Find(&account)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load account '%s': %w", externalID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("account '%s': %w", externalID, ErrNotFound)
	}
	return &account, nil
}

// UpdateBalance writes the session balance back to the account.
func (s *Store) UpdateBalance(ctx context.Context, accountID uint, balance float64) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Update("balance", balance)
	if res.Error != nil {
		return fmt.Errorf("failed to update balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	return nil
}

// SaveRound stores a settled round.
func (s *Store) SaveRound(ctx context.Context, record *models.RoundRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save round %d: %w", record.Round, err)
	}
	return nil
}

// ListRounds returns the most recent rounds first. A limit of 0 returns all of them.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error) {
	var rounds []models.RoundRecord
	q := s.db.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// PlayedRounds returns every round in which the player held a position.
func (s *Store) PlayedRounds(ctx context.Context) ([]models.RoundRecord, error) {
	var rounds []models.RoundRecord
	if err := s.db.WithContext(ctx).Where("result != ?", "").Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to list played rounds: %w", err)
	}
	return rounds, nil
}
