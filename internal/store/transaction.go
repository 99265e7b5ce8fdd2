package store

import (
	"context"
	"errors"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTransaction validates, resolves the scheduled payment date and
// persists a new transaction.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.validateTransaction(t); err != nil {
		return err
	}
	if err := s.resolveSchedule(ctx, t); err != nil {
		return err
	}

	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()

	return s.withKey(func(key []byte) error {
		if err := sealTransaction(key, t); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Create(t).Error
	})
}

// GetTransaction loads one transaction with decrypted fields.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.withKey(func(key []byte) error { return openTransaction(key, &t) }); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTransaction applies mutable fields (amount, store, usage, memo,
// date, payment method, manual schedule override) and re-resolves the
// scheduled date unless the user's manual override is in effect.
func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	if err := s.validateTransaction(t); err != nil {
		return nil, err
	}

	var existing models.Transaction
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", t.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// id / created_at は不変
	existing.Date = t.Date
	existing.Amount = t.Amount
	existing.StoreName = t.StoreName
	existing.Usage = t.Usage
	existing.PaymentType = t.PaymentType
	existing.CardID = t.CardID
	existing.BankID = t.BankID
	existing.AdjustWeekend = t.AdjustWeekend
	existing.IsScheduleEditable = t.IsScheduleEditable
	existing.ScheduledPayDate = t.ScheduledPayDate
	existing.Memo = t.Memo

	if err := s.resolveSchedule(ctx, &existing); err != nil {
		return nil, err
	}

	err := s.withKey(func(key []byte) error {
		if err := sealTransaction(key, &existing); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Save(&existing).Error
	})
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactionsScheduledIn returns decrypted transactions whose stored
// scheduled payment date falls within (year, month). The scheduled date
// is indexed, so this is a plain range query.
func (s *Store) ListTransactionsScheduledIn(ctx context.Context, year int, month time.Month) ([]models.Transaction, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, calendar.JST)
	end := start.AddDate(0, 1, 0)
	return s.listTransactions(ctx, "scheduled_pay_date >= ? AND scheduled_pay_date < ?", start, end)
}

// ListTransactionsByDateRange returns decrypted transactions purchased in
// [from, to), ordered by purchase date.
func (s *Store) ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	return s.listTransactions(ctx, "date >= ? AND date < ?", from, to)
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.WithContext(ctx).Where(query, args...).
		Order("date ASC, id ASC").Find(&txs).Error; err != nil {
		return nil, err
	}
	err := s.withKey(func(key []byte) error {
		for i := range txs {
			if err := openTransaction(key, &txs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// MonthlySchedule loads the month's transactions plus the full bank/card
// reference sets and builds the bank × date aggregate view.
func (s *Store) MonthlySchedule(ctx context.Context, year int, month time.Month) (*schedule.MonthlyAggregate, error) {
	txs, err := s.ListTransactionsScheduledIn(ctx, year, month)
	if err != nil {
		return nil, err
	}
	banks, err := s.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.ListCards(ctx)
	if err != nil {
		return nil, err
	}

	agg, err := schedule.BuildMonthlyAggregate(txs, banks, cards, year, month)
	if err != nil {
		return nil, err
	}
	for _, w := range agg.Warnings {
		s.log.Warn().Str("transaction", w.TransactionID).Str("reason", w.Reason).
			Msg("aggregation skipped a row")
	}
	return agg, nil
}

// validateTransaction checks the field-level and cross-field invariants:
// positive whole-yen amount, text limits, and exactly one of
// card_id/bank_id consistent with the payment type.
func (s *Store) validateTransaction(t *models.Transaction) error {
	if err := util.ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return &util.FieldError{Field: "date", Reason: "is required"}
	}
	if err := util.ValidateText("store_name", t.StoreName, maxTextLen); err != nil {
		return err
	}
	if err := util.ValidateText("usage", t.Usage, maxTextLen); err != nil {
		return err
	}
	if err := util.ValidateText("memo", t.Memo, maxMemoLen); err != nil {
		return err
	}

	switch t.PaymentType {
	case models.PaymentCard:
		if t.CardID == nil || *t.CardID == "" {
			return &util.FieldError{Field: "card_id", Reason: "is required for card payments"}
		}
		if t.BankID != nil {
			return &util.FieldError{Field: "bank_id", Reason: "must be empty for card payments"}
		}
	case models.PaymentBank:
		if t.BankID == nil || *t.BankID == "" {
			return &util.FieldError{Field: "bank_id", Reason: "is required for bank debits"}
		}
		if t.CardID != nil {
			return &util.FieldError{Field: "card_id", Reason: "must be empty for bank debits"}
		}
	default:
		return &util.FieldError{Field: "payment_type", Reason: "must be card or bank"}
	}
	return nil
}

// resolveSchedule fills ScheduledPayDate. Manual overrides are kept
// as-is; everything else is recomputed from the current rules.
func (s *Store) resolveSchedule(ctx context.Context, t *models.Transaction) error {
	if t.IsScheduleEditable {
		if t.ScheduledPayDate.IsZero() {
			return &util.FieldError{Field: "scheduled_pay_date", Reason: "is required when manually overridden"}
		}
		t.ScheduledPayDate = calendar.DateOf(t.ScheduledPayDate)
		return nil
	}

	switch t.PaymentType {
	case models.PaymentCard:
		var card models.Card
		if err := s.db.WithContext(ctx).First(&card, "id = ?", *t.CardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &util.FieldError{Field: "card_id", Reason: "card not found"}
			}
			return err
		}
		rule, err := schedule.RuleForCard(&card)
		if err != nil {
			return err
		}
		t.ScheduledPayDate = rule.Compute(t.Date).ScheduledDate
	case models.PaymentBank:
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Bank{}).Where("id = ?", *t.BankID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &util.FieldError{Field: "bank_id", Reason: "bank not found"}
		}
		t.ScheduledPayDate = schedule.BankDebit(t.Date, t.AdjustWeekend).ScheduledDate
	}
	return nil
}
