package models

import "time"

// Credential holds the single password verifier for the store. Only the
// bcrypt hash and the KDF salt are persisted; the password and the derived
// session key never touch the database.
type Credential struct {
	ID           uint      `gorm:"primaryKey"`
	VerifierHash string    `gorm:"size:255;not null"`
	KDFSalt      string    `gorm:"size:64;not null"` // base64
	Iterations   int       `gorm:"not null"`
	UpdatedAt    time.Time
}
