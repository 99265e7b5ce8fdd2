// Package store is the encrypted persistence layer: a schema-versioned
// SQLite store whose sensitive columns are sealed with the active session
// key on every write and opened on every read. While the session is
// locked, every data operation fails with a session StateError instead of
// returning garbage.
package store

import (
	"errors"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/session"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Store is the long-lived persistence handle. Construct it once in main
// via Open and pass it by reference to all consumers.
type Store struct {
	db      *gorm.DB
	session *session.Manager
	log     zerolog.Logger
}

// Open validates the encrypted/plaintext field mapping, ensures the table
// structure, runs pending versioned migrations and returns the handle.
// Opening while locked is fine: migrations only touch plaintext columns.
func Open(db *gorm.DB, sess *session.Manager, log zerolog.Logger) (*Store, error) {
	if err := ValidateFieldSpecs(); err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	s := &Store{db: db, session: sess, log: log}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for wiring (audit middleware,
// credential store). Not for data-path use.
func (s *Store) DB() *gorm.DB { return s.db }

// withKey borrows the session key for one operation. The borrow never
// outlives the call: the manager holds its lock for the duration.
func (s *Store) withKey(fn func(key []byte) error) error {
	return s.session.WithKey(fn)
}

// ---------- credential persistence for the session manager ----------

// credentialStore persists the password verifier in the credentials table.
type credentialStore struct {
	db *gorm.DB
}

// NewCredentialStore returns the session.CredentialStore backed by this
// database. Call AutoMigrate before the first Load.
func NewCredentialStore(db *gorm.DB) session.CredentialStore {
	return &credentialStore{db: db}
}

func (c *credentialStore) Load() (*models.Credential, error) {
	var cred models.Credential
	if err := c.db.First(&cred, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (c *credentialStore) Save(cred *models.Credential) error {
	cred.ID = 1
	return c.db.Save(cred).Error
}
