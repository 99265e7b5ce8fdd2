package models

import "time"

// AuditLog records mutating requests for auditing. The path and action
// are stored encrypted; only method, client info and timestamps stay in
// plaintext.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	Method    string    `gorm:"size:16"`
	PathEnc   string    `gorm:"size:1024"`
	ActionEnc string    `gorm:"size:4096"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:255"`
	CreatedAt time.Time
}
