package store

import (
	"fmt"
	"strconv"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/util"
)

// seal/open helpers: copy the transient plaintext fields of a record into
// its *Enc columns and back, using the active session key. One function
// per record type keeps the field mapping compile-time checked.

func sealBank(key []byte, b *models.Bank) error {
	var err error
	if b.NameEnc, err = util.EncryptField(key, b.Name); err != nil {
		return fmt.Errorf("seal bank name: %w", err)
	}
	if b.MemoEnc, err = util.EncryptField(key, b.Memo); err != nil {
		return fmt.Errorf("seal bank memo: %w", err)
	}
	return nil
}

func openBank(key []byte, b *models.Bank) error {
	var err error
	if b.Name, err = util.DecryptField(key, b.NameEnc); err != nil {
		return fmt.Errorf("open bank name: %w", err)
	}
	if b.Memo, err = util.DecryptField(key, b.MemoEnc); err != nil {
		return fmt.Errorf("open bank memo: %w", err)
	}
	return nil
}

func sealCard(key []byte, c *models.Card) error {
	var err error
	if c.NameEnc, err = util.EncryptField(key, c.Name); err != nil {
		return fmt.Errorf("seal card name: %w", err)
	}
	if c.MemoEnc, err = util.EncryptField(key, c.Memo); err != nil {
		return fmt.Errorf("seal card memo: %w", err)
	}
	return nil
}

func openCard(key []byte, c *models.Card) error {
	var err error
	if c.Name, err = util.DecryptField(key, c.NameEnc); err != nil {
		return fmt.Errorf("open card name: %w", err)
	}
	if c.Memo, err = util.DecryptField(key, c.MemoEnc); err != nil {
		return fmt.Errorf("open card memo: %w", err)
	}
	return nil
}

func sealTransaction(key []byte, t *models.Transaction) error {
	var err error
	// 金額も機微情報なので暗号化列にのみ保存する
	if t.AmountEnc, err = util.EncryptField(key, strconv.FormatInt(t.Amount, 10)); err != nil {
		return fmt.Errorf("seal amount: %w", err)
	}
	if t.StoreNameEnc, err = util.EncryptField(key, t.StoreName); err != nil {
		return fmt.Errorf("seal store name: %w", err)
	}
	if t.UsageEnc, err = util.EncryptField(key, t.Usage); err != nil {
		return fmt.Errorf("seal usage: %w", err)
	}
	if t.MemoEnc, err = util.EncryptField(key, t.Memo); err != nil {
		return fmt.Errorf("seal memo: %w", err)
	}
	return nil
}

func openTransaction(key []byte, t *models.Transaction) error {
	amountStr, err := util.DecryptField(key, t.AmountEnc)
	if err != nil {
		return fmt.Errorf("open amount: %w", err)
	}
	if amountStr != "" {
		if t.Amount, err = strconv.ParseInt(amountStr, 10, 64); err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
	}
	if t.StoreName, err = util.DecryptField(key, t.StoreNameEnc); err != nil {
		return fmt.Errorf("open store name: %w", err)
	}
	if t.Usage, err = util.DecryptField(key, t.UsageEnc); err != nil {
		return fmt.Errorf("open usage: %w", err)
	}
	if t.Memo, err = util.DecryptField(key, t.MemoEnc); err != nil {
		return fmt.Errorf("open memo: %w", err)
	}
	return nil
}
