package store

import (
	"context"
	"errors"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxNameLen = 64
	maxMemoLen = 255
	maxTextLen = 128
)

// CreateBank persists a new bank. ID and CreatedAt are assigned here and
// never change afterwards.
func (s *Store) CreateBank(ctx context.Context, b *models.Bank) error {
	if err := util.ValidateRequired("name", b.Name, maxNameLen); err != nil {
		return err
	}
	if err := util.ValidateText("memo", b.Memo, maxMemoLen); err != nil {
		return err
	}

	b.ID = uuid.New().String()
	b.CreatedAt = time.Now()

	return s.withKey(func(key []byte) error {
		if err := sealBank(key, b); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Create(b).Error
	})
}

// GetBank loads one bank with decrypted fields.
func (s *Store) GetBank(ctx context.Context, id string) (*models.Bank, error) {
	var b models.Bank
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.withKey(func(key []byte) error { return openBank(key, &b) }); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBanks returns all banks, decrypted, in creation order.
func (s *Store) ListBanks(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&banks).Error; err != nil {
		return nil, err
	}
	err := s.withKey(func(key []byte) error {
		for i := range banks {
			if err := openBank(key, &banks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return banks, nil
}

// UpdateBank updates the mutable fields (name, memo). ID and CreatedAt
// are immutable.
func (s *Store) UpdateBank(ctx context.Context, id, name, memo string) (*models.Bank, error) {
	if err := util.ValidateRequired("name", name, maxNameLen); err != nil {
		return nil, err
	}
	if err := util.ValidateText("memo", memo, maxMemoLen); err != nil {
		return nil, err
	}

	var b models.Bank
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	b.Name = name
	b.Memo = memo
	err := s.withKey(func(key []byte) error {
		if err := sealBank(key, &b); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Save(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBank removes a bank unless cards or transactions still reference
// it (delete policy: reject, no cascade).
func (s *Store) DeleteBank(ctx context.Context, id string) error {
	var b models.Bank
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var cardCount int64
	if err := s.db.WithContext(ctx).Model(&models.Card{}).Where("bank_id = ?", id).Count(&cardCount).Error; err != nil {
		return err
	}
	if cardCount > 0 {
		return &ReferenceError{Record: "bank", ID: id, RefBy: "card", Count: cardCount}
	}

	var txCount int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("bank_id = ?", id).Count(&txCount).Error; err != nil {
		return err
	}
	if txCount > 0 {
		return &ReferenceError{Record: "bank", ID: id, RefBy: "transaction", Count: txCount}
	}

	return s.db.WithContext(ctx).Delete(&models.Bank{}, "id = ?", id).Error
}
