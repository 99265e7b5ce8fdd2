package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateCard validates the billing rule and the bank reference, then
// persists the card. Rule errors surface here, at save time, never later
// during date calculation.
func (s *Store) CreateCard(ctx context.Context, c *models.Card) error {
	if err := s.validateCard(ctx, c); err != nil {
		return err
	}

	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()

	return s.withKey(func(key []byte) error {
		if err := sealCard(key, c); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Create(c).Error
	})
}

// GetCard loads one card with decrypted fields.
func (s *Store) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var c models.Card
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.withKey(func(key []byte) error { return openCard(key, &c) }); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCards returns all cards, decrypted, in creation order.
func (s *Store) ListCards(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	err := s.withKey(func(key []byte) error {
		for i := range cards {
			if err := openCard(key, &cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// UpdateCard updates a card's mutable fields. When the billing rule
// changed, the scheduled dates of every not-manually-overridden
// transaction on this card are recomputed in the same database
// transaction.
func (s *Store) UpdateCard(ctx context.Context, c *models.Card) (*models.Card, error) {
	if err := s.validateCard(ctx, c); err != nil {
		return nil, err
	}

	var existing models.Card
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", c.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ruleChanged := existing.ClosingDay != c.ClosingDay ||
		existing.PaymentDay != c.PaymentDay ||
		existing.PaymentMonthShift != c.PaymentMonthShift ||
		existing.AdjustWeekend != c.AdjustWeekend

	// id / created_at は不変
	existing.Name = c.Name
	existing.Memo = c.Memo
	existing.BankID = c.BankID
	existing.ClosingDay = c.ClosingDay
	existing.PaymentDay = c.PaymentDay
	existing.PaymentMonthShift = c.PaymentMonthShift
	existing.AdjustWeekend = c.AdjustWeekend

	err := s.withKey(func(key []byte) error {
		if err := sealCard(key, &existing); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			if ruleChanged {
				return recomputeCardTransactions(tx, &existing)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// DeleteCard removes a card unless transactions still reference it.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	var c models.Card
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var txCount int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("card_id = ?", id).Count(&txCount).Error; err != nil {
		return err
	}
	if txCount > 0 {
		return &ReferenceError{Record: "card", ID: id, RefBy: "transaction", Count: txCount}
	}

	return s.db.WithContext(ctx).Delete(&models.Card{}, "id = ?", id).Error
}

func (s *Store) validateCard(ctx context.Context, c *models.Card) error {
	if err := util.ValidateRequired("name", c.Name, maxNameLen); err != nil {
		return err
	}
	if err := util.ValidateText("memo", c.Memo, maxMemoLen); err != nil {
		return err
	}
	if c.BankID == "" {
		return &util.FieldError{Field: "bank_id", Reason: "is required"}
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Bank{}).Where("id = ?", c.BankID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &util.FieldError{Field: "bank_id", Reason: "bank not found"}
	}
	// 不正な締め日・支払日は保存時点で弾く
	if _, err := schedule.RuleForCard(c); err != nil {
		return err
	}
	return nil
}

// recomputeCardTransactions refreshes scheduled_pay_date for all
// non-overridden transactions of the card. Billing rule columns are
// plaintext, so no key is needed here.
func recomputeCardTransactions(tx *gorm.DB, card *models.Card) error {
	rule, err := schedule.RuleForCard(card)
	if err != nil {
		return err
	}

	var txs []models.Transaction
	if err := tx.Where("card_id = ? AND is_schedule_editable = ?", card.ID, false).Find(&txs).Error; err != nil {
		return err
	}
	for i := range txs {
		scheduled := rule.Compute(txs[i].Date).ScheduledDate
		if scheduled.Equal(txs[i].ScheduledPayDate) {
			continue
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", txs[i].ID).
			Update("scheduled_pay_date", scheduled).Error; err != nil {
			return fmt.Errorf("recompute transaction %s: %w", txs[i].ID, err)
		}
	}
	return nil
}
