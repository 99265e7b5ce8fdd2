package store

import (
	"context"
	"fmt"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/util"

	"gorm.io/gorm"
)

// ChangePassword rotates the password and re-encrypts every ciphertext
// column under the new key. The new verifier row is written in the same
// database transaction as the rewrap: either the credential and all
// ciphertexts move to the new key together, or nothing changes. The
// session manager holds its mutex for the whole commit, so no reader can
// observe a half-rewritten store.
func (s *Store) ChangePassword(ctx context.Context, current, next string) error {
	return s.session.ChangePassword(current, next, func(oldKey, newKey []byte, cred *models.Credential) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.reencryptAllTx(tx, oldKey, newKey); err != nil {
				return err
			}
			return NewCredentialStore(tx).Save(cred)
		})
	})
}

// reencryptAllTx re-seals every encrypted column inside the caller's
// transaction. It never commits on its own.
func (s *Store) reencryptAllTx(tx *gorm.DB, oldKey, newKey []byte) error {
	var banks []models.Bank
	if err := tx.Find(&banks).Error; err != nil {
		return fmt.Errorf("load banks: %w", err)
	}
	for i := range banks {
		b := &banks[i]
		if err := openBank(oldKey, b); err != nil {
			return err
		}
		if err := sealBank(newKey, b); err != nil {
			return err
		}
		if err := tx.Model(b).Updates(map[string]interface{}{
			"name_enc": b.NameEnc,
			"memo_enc": b.MemoEnc,
		}).Error; err != nil {
			return fmt.Errorf("rewrap bank %s: %w", b.ID, err)
		}
	}

	var cards []models.Card
	if err := tx.Find(&cards).Error; err != nil {
		return fmt.Errorf("load cards: %w", err)
	}
	for i := range cards {
		c := &cards[i]
		if err := openCard(oldKey, c); err != nil {
			return err
		}
		if err := sealCard(newKey, c); err != nil {
			return err
		}
		if err := tx.Model(c).Updates(map[string]interface{}{
			"name_enc": c.NameEnc,
			"memo_enc": c.MemoEnc,
		}).Error; err != nil {
			return fmt.Errorf("rewrap card %s: %w", c.ID, err)
		}
	}

	var txs []models.Transaction
	if err := tx.Find(&txs).Error; err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	for i := range txs {
		t := &txs[i]
		if err := openTransaction(oldKey, t); err != nil {
			return err
		}
		if err := sealTransaction(newKey, t); err != nil {
			return err
		}
		if err := tx.Model(t).Updates(map[string]interface{}{
			"amount_enc":     t.AmountEnc,
			"store_name_enc": t.StoreNameEnc,
			"usage_enc":      t.UsageEnc,
			"memo_enc":       t.MemoEnc,
		}).Error; err != nil {
			return fmt.Errorf("rewrap transaction %s: %w", t.ID, err)
		}
	}

	var logs []models.AuditLog
	if err := tx.Find(&logs).Error; err != nil {
		return fmt.Errorf("load audit logs: %w", err)
	}
	for i := range logs {
		l := &logs[i]
		path, err := util.DecryptField(oldKey, l.PathEnc)
		if err != nil {
			return fmt.Errorf("open audit path: %w", err)
		}
		action, err := util.DecryptField(oldKey, l.ActionEnc)
		if err != nil {
			return fmt.Errorf("open audit action: %w", err)
		}
		if l.PathEnc, err = util.EncryptField(newKey, path); err != nil {
			return fmt.Errorf("seal audit path: %w", err)
		}
		if l.ActionEnc, err = util.EncryptField(newKey, action); err != nil {
			return fmt.Errorf("seal audit action: %w", err)
		}
		if err := tx.Model(l).Updates(map[string]interface{}{
			"path_enc":   l.PathEnc,
			"action_enc": l.ActionEnc,
		}).Error; err != nil {
			return fmt.Errorf("rewrap audit log %d: %w", l.ID, err)
		}
	}

	s.log.Info().
		Int("banks", len(banks)).
		Int("cards", len(cards)).
		Int("transactions", len(txs)).
		Int("audit_logs", len(logs)).
		Msg("re-encrypted store under new key")
	return nil
}
