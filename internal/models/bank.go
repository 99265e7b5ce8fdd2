package models

import "time"

// Bank 引き落とし口座の銀行。Name / Memo は保存時に暗号化される
// （NameEnc / MemoEnc 列、AES-GCM + base64）。平文は gorm:"-" の
// transient フィールドにだけ存在する。
type Bank struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"-" json:"name"`
	Memo      string    `gorm:"-" json:"memo"`
	NameEnc   string    `gorm:"size:512" json:"-"`
	MemoEnc   string    `gorm:"size:1024" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
