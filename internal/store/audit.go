package store

import (
	"context"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/util"
)

// AuditEntry is a decrypted audit-log row.
type AuditEntry struct {
	ID        uint   `json:"id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Action    string `json:"action"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	CreatedAt string `json:"created_at"`
}

// WriteAudit records one mutating request. Path and action are encrypted
// with the session key, so auditing needs an unlocked session like every
// other write.
func (s *Store) WriteAudit(ctx context.Context, method, path, action, ip, userAgent string) error {
	return s.withKey(func(key []byte) error {
		pathEnc, err := util.EncryptField(key, path)
		if err != nil {
			return err
		}
		actionEnc, err := util.EncryptField(key, action)
		if err != nil {
			return err
		}
		return s.db.WithContext(ctx).Create(&models.AuditLog{
			Method:    method,
			PathEnc:   pathEnc,
			ActionEnc: actionEnc,
			IP:        ip,
			UserAgent: userAgent,
		}).Error
	})
}

// ListAudit returns the newest audit entries, decrypted.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.AuditLog
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(rows))
	err := s.withKey(func(key []byte) error {
		for i := range rows {
			path, err := util.DecryptField(key, rows[i].PathEnc)
			if err != nil {
				return err
			}
			action, err := util.DecryptField(key, rows[i].ActionEnc)
			if err != nil {
				return err
			}
			entries = append(entries, AuditEntry{
				ID:        rows[i].ID,
				Method:    rows[i].Method,
				Path:      path,
				Action:    action,
				IP:        rows[i].IP,
				UserAgent: rows[i].UserAgent,
				CreatedAt: rows[i].CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
