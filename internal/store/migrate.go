package store

import (
	"errors"
	"fmt"
	"time"

	"bank-payment-schedule/internal/models"

	"gorm.io/gorm"
)

// CurrentSchemaVersion is the schema version this code expects.
//
// History:
//
//	v1  initial schema (banks, cards, transactions)
//	v2  transactions.adjust_weekend for bank debits (backfill: false)
//	v3  cards.payment_month_shift (backfill: 1 = 翌月払い)
const CurrentSchemaVersion = 3

type migration struct {
	version int
	name    string
	run     func(tx *gorm.DB) error
}

// dataMigrations back-fill explicit defaults on rows created before a
// column existed. They must only touch plaintext columns: migrations run
// at Open time, possibly while the store is still locked.
var dataMigrations = []migration{
	{
		version: 2,
		name:    "backfill transactions.adjust_weekend",
		run: func(tx *gorm.DB) error {
			return tx.Exec("UPDATE transactions SET adjust_weekend = 0 WHERE adjust_weekend IS NULL").Error
		},
	},
	{
		version: 3,
		name:    "backfill cards.payment_month_shift",
		run: func(tx *gorm.DB) error {
			return tx.Exec("UPDATE cards SET payment_month_shift = 1 WHERE payment_month_shift IS NULL").Error
		},
	},
}

// migrate brings the stored schema version up to CurrentSchemaVersion.
// All pending migrations run in one transaction: either the version and
// every back-fill land together, or nothing changes. The outcome is
// recorded in the meta row either way.
func (s *Store) migrate() error {
	meta, err := s.loadOrInitMeta()
	if err != nil {
		return err
	}
	if meta.SchemaVersion >= CurrentSchemaVersion {
		return nil
	}

	from := meta.SchemaVersion
	s.log.Info().Int("from", from).Int("to", CurrentSchemaVersion).Msg("running schema migration")

	if err := s.runMigrations(from, CurrentSchemaVersion, dataMigrations); err != nil {
		s.recordMigrationOutcome(from, CurrentSchemaVersion, err)
		s.log.Error().Err(err).Msg("schema migration failed, store rolled back")
		return &MigrationError{From: from, To: CurrentSchemaVersion, Err: err}
	}

	s.recordMigrationOutcome(from, CurrentSchemaVersion, nil)
	s.log.Info().Int("version", CurrentSchemaVersion).Msg("schema migration complete")
	return nil
}

// runMigrations applies the migrations in (from, to] inside a single
// transaction, bumping the stored version as the final step.
func (s *Store) runMigrations(from, to int, migs []migration) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range migs {
			if m.version <= from || m.version > to {
				continue
			}
			if err := m.run(tx); err != nil {
				return fmt.Errorf("%s: %w", m.name, err)
			}
		}
		return tx.Model(&models.Meta{}).Where("id = ?", models.MetaID).
			Update("schema_version", to).Error
	})
}

// loadOrInitMeta returns the single metadata row, creating it at the
// current version for a fresh store (nothing to migrate).
func (s *Store) loadOrInitMeta() (*models.Meta, error) {
	var meta models.Meta
	err := s.db.First(&meta, models.MetaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		meta = models.Meta{ID: models.MetaID, SchemaVersion: CurrentSchemaVersion}
		if err := s.db.Create(&meta).Error; err != nil {
			return nil, fmt.Errorf("init meta: %w", err)
		}
		return &meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	return &meta, nil
}

// recordMigrationOutcome writes the diagnostic fields outside the
// migration transaction so a failure outcome survives the rollback.
func (s *Store) recordMigrationOutcome(from, to int, migErr error) {
	now := time.Now()
	updates := map[string]interface{}{
		"last_migration_from":  from,
		"last_migration_to":    to,
		"last_migration_ok":    migErr == nil,
		"last_migration_error": "",
		"last_migration_at":    &now,
	}
	if migErr != nil {
		updates["last_migration_error"] = migErr.Error()
	}
	if err := s.db.Model(&models.Meta{}).Where("id = ?", models.MetaID).
		Updates(updates).Error; err != nil {
		s.log.Error().Err(err).Msg("record migration outcome")
	}
}

// Meta returns the current metadata row (schema version and last
// migration outcome) for diagnostics.
func (s *Store) Meta() (*models.Meta, error) {
	var meta models.Meta
	if err := s.db.First(&meta, models.MetaID).Error; err != nil {
		return nil, err
	}
	return &meta, nil
}
