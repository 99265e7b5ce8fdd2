package store

import (
	"context"
	"fmt"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/util"

	"gorm.io/gorm"
)

// SnapshotFormatVersion is the snapshot blob format version.
const SnapshotFormatVersion = 1

// Snapshot is a full, decrypted export of the store. Records carry their
// original ids and timestamps so an import restores the store observably
// identical.
type Snapshot struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	Banks        []models.Bank        `json:"banks"`
	Cards        []models.Card        `json:"cards"`
	Transactions []models.Transaction `json:"transactions"`
}

// ExportSnapshot produces a versioned snapshot of all three record sets.
// Requires an unlocked session (fields are exported decrypted).
func (s *Store) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	banks, err := s.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.listTransactions(ctx, "1 = 1")
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Version:      SnapshotFormatVersion,
		ExportedAt:   time.Now(),
		Banks:        banks,
		Cards:        cards,
		Transactions: txs,
	}, nil
}

// ImportSnapshot validates the snapshot's shape and then replaces all
// current data in one transaction. Partial imports never happen: a
// validation or write failure leaves the store untouched.
func (s *Store) ImportSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	return s.withKey(func(key []byte) error {
		// 取り込み前に全レコードを封緘しておき、書き込みは一括で行う
		for i := range snap.Banks {
			if err := sealBank(key, &snap.Banks[i]); err != nil {
				return err
			}
		}
		for i := range snap.Cards {
			if err := sealCard(key, &snap.Cards[i]); err != nil {
				return err
			}
		}
		for i := range snap.Transactions {
			if err := sealTransaction(key, &snap.Transactions[i]); err != nil {
				return err
			}
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, model := range []interface{}{&models.Transaction{}, &models.Card{}, &models.Bank{}} {
				if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
					return err
				}
			}
			if len(snap.Banks) > 0 {
				if err := tx.Create(&snap.Banks).Error; err != nil {
					return err
				}
			}
			if len(snap.Cards) > 0 {
				if err := tx.Create(&snap.Cards).Error; err != nil {
					return err
				}
			}
			if len(snap.Transactions) > 0 {
				if err := tx.Create(&snap.Transactions).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// validateSnapshot checks the blob's shape and internal referential
// consistency before anything is replaced.
func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return &SnapshotError{Reason: "empty snapshot"}
	}
	if snap.Version != SnapshotFormatVersion {
		return &SnapshotError{Reason: fmt.Sprintf("unsupported version %d", snap.Version)}
	}

	bankIDs := make(map[string]bool, len(snap.Banks))
	for i := range snap.Banks {
		b := &snap.Banks[i]
		if b.ID == "" {
			return &SnapshotError{Reason: fmt.Sprintf("bank %d: missing id", i)}
		}
		if err := util.ValidateRequired("name", b.Name, maxNameLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("bank %s: %v", b.ID, err)}
		}
		if err := util.ValidateText("memo", b.Memo, maxMemoLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("bank %s: %v", b.ID, err)}
		}
		if bankIDs[b.ID] {
			return &SnapshotError{Reason: fmt.Sprintf("duplicate bank id %s", b.ID)}
		}
		bankIDs[b.ID] = true
	}

	cardIDs := make(map[string]bool, len(snap.Cards))
	for i := range snap.Cards {
		c := &snap.Cards[i]
		if c.ID == "" {
			return &SnapshotError{Reason: fmt.Sprintf("card %d: missing id", i)}
		}
		if err := util.ValidateRequired("name", c.Name, maxNameLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("card %s: %v", c.ID, err)}
		}
		if err := util.ValidateText("memo", c.Memo, maxMemoLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("card %s: %v", c.ID, err)}
		}
		if cardIDs[c.ID] {
			return &SnapshotError{Reason: fmt.Sprintf("duplicate card id %s", c.ID)}
		}
		cardIDs[c.ID] = true
		if !bankIDs[c.BankID] {
			return &SnapshotError{Reason: fmt.Sprintf("card %s references unknown bank %s", c.ID, c.BankID)}
		}
		if _, err := schedule.RuleForCard(c); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("card %s: %v", c.ID, err)}
		}
	}

	txIDs := make(map[string]bool, len(snap.Transactions))
	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if t.ID == "" {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %d: missing id", i)}
		}
		if txIDs[t.ID] {
			return &SnapshotError{Reason: fmt.Sprintf("duplicate transaction id %s", t.ID)}
		}
		txIDs[t.ID] = true
		if err := util.ValidateAmount(t.Amount); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: %v", t.ID, err)}
		}
		if err := util.ValidateText("store_name", t.StoreName, maxTextLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: %v", t.ID, err)}
		}
		if err := util.ValidateText("usage", t.Usage, maxTextLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: %v", t.ID, err)}
		}
		if err := util.ValidateText("memo", t.Memo, maxMemoLen); err != nil {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: %v", t.ID, err)}
		}
		if t.ScheduledPayDate.IsZero() {
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: missing scheduled_pay_date", t.ID)}
		}
		switch t.PaymentType {
		case models.PaymentCard:
			if t.CardID == nil || !cardIDs[*t.CardID] {
				return &SnapshotError{Reason: fmt.Sprintf("transaction %s references unknown card", t.ID)}
			}
		case models.PaymentBank:
			if t.BankID == nil || !bankIDs[*t.BankID] {
				return &SnapshotError{Reason: fmt.Sprintf("transaction %s references unknown bank", t.ID)}
			}
		default:
			return &SnapshotError{Reason: fmt.Sprintf("transaction %s: bad payment type %q", t.ID, t.PaymentType)}
		}
	}

	return nil
}
