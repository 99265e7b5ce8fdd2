package models

import "time"

// MetaID is the fixed primary key of the single metadata row.
const MetaID = 1

// Meta is the single-row store metadata record: current schema version
// plus the outcome of the last migration run, kept for diagnostics.
type Meta struct {
	ID                 uint       `gorm:"primaryKey"`
	SchemaVersion      int        `gorm:"not null"`
	LastMigrationFrom  int        `gorm:"not null;default:0"`
	LastMigrationTo    int        `gorm:"not null;default:0"`
	LastMigrationOK    bool       `gorm:"not null;default:true"`
	LastMigrationError string     `gorm:"size:1024"`
	LastMigrationAt    *time.Time
	UpdatedAt          time.Time
}

// TableName keeps the table singular; "metas" reads badly in the schema.
func (Meta) TableName() string { return "meta" }
