// Package session owns the password-derived encryption key. The key exists
// only in memory, only while a session is unlocked, and is handed out solely
// through Manager.WithKey so no caller can hold it past the session.
package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// State is the manager's lifecycle state.
type State int

const (
	// StateNoKeySet 初回起動：パスワード未設定。
	StateNoKeySet State = iota
	// StateLocked 検証ハッシュはあるがセッション鍵はない。
	StateLocked
	// StateUnlocked 導出済みの鍵を期限付きでメモリに保持している。
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateNoKeySet:
		return "no_key_set"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAuthentication is returned for a wrong password on unlock or change.
var ErrAuthentication = errors.New("authentication failed")

// StateError reports an operation attempted in the wrong state, including
// encrypted data access while locked or after expiry.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session: %s not allowed in state %s", e.Op, e.State)
}

// CredentialStore persists the password verifier. The manager itself never
// touches the database directly.
type CredentialStore interface {
	Load() (*models.Credential, error) // (nil, nil) when not set up yet
	Save(*models.Credential) error
}

// Manager is the single process-wide session-key holder.
type Manager struct {
	creds      CredentialStore
	iterations int
	bcryptCost int
	ttl        time.Duration

	mu        sync.Mutex
	state     State
	key       []byte
	sessionID string
	expiresAt time.Time
	timer     *time.Timer
}

// NewManager builds a manager and loads the persisted verifier to decide
// the initial state (NoKeySet or Locked).
func NewManager(creds CredentialStore, iterations, bcryptCost int, ttl time.Duration) (*Manager, error) {
	if iterations <= 0 {
		iterations = 100_000
	}
	if bcryptCost <= 0 {
		bcryptCost = 12
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	m := &Manager{
		creds:      creds,
		iterations: iterations,
		bcryptCost: bcryptCost,
		ttl:        ttl,
		state:      StateNoKeySet,
	}

	cred, err := creds.Load()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred != nil {
		m.state = StateLocked
	}
	return m, nil
}

// Setup sets the initial password. Valid only from NoKeySet; transitions
// to Unlocked with a fresh session.
func (m *Manager) Setup(password string) error {
	m.mu.Lock()
	if m.state != StateNoKeySet {
		defer m.mu.Unlock()
		return &StateError{Op: "setup", State: m.state}
	}
	m.mu.Unlock()

	// 鍵導出とハッシュは意図的に重いのでロックの外で行う
	cred, key, err := m.deriveCredential(password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateNoKeySet {
		wipe(key)
		return &StateError{Op: "setup", State: m.state}
	}
	if err := m.creds.Save(cred); err != nil {
		wipe(key)
		return fmt.Errorf("save credential: %w", err)
	}
	m.installKeyLocked(key)
	return nil
}

// Unlock re-derives the key from the password and compares it against the
// stored verifier. On mismatch the manager stays Locked.
func (m *Manager) Unlock(password string) error {
	m.mu.Lock()
	if m.state != StateLocked {
		defer m.mu.Unlock()
		return &StateError{Op: "unlock", State: m.state}
	}
	m.mu.Unlock()

	cred, err := m.creds.Load()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return &StateError{Op: "unlock", State: StateNoKeySet}
	}

	// 検証も導出もロックの外。期限切れや並行 lock() と競合しても、
	// 最後の commit がもう一度状態を確認するので安全。
	if bcrypt.CompareHashAndPassword([]byte(cred.VerifierHash), []byte(password)) != nil {
		return ErrAuthentication
	}
	salt, err := base64.RawStdEncoding.DecodeString(cred.KDFSalt)
	if err != nil {
		return fmt.Errorf("decode salt: %w", err)
	}
	key := util.DeriveKey(password, salt, cred.Iterations)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLocked {
		wipe(key)
		return &StateError{Op: "unlock", State: m.state}
	}
	m.installKeyLocked(key)
	return nil
}

// Lock discards the in-memory key immediately.
func (m *Manager) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUnlocked {
		return &StateError{Op: "lock", State: m.state}
	}
	m.lockLocked()
	return nil
}

// ChangePassword re-verifies the current password, then rotates the
// verifier, salt and active session key. Requires Unlocked. commit is
// called with the old and new key while both are still valid and must
// persist the new credential together with any data it re-encrypts in
// a single transaction, so the verifier can never part ways with the
// ciphertexts it guards. If commit fails nothing changes; once it
// returns nil the rotation is durable and the manager installs the new
// key. A nil commit makes the manager save the credential itself.
func (m *Manager) ChangePassword(current, next string, commit func(oldKey, newKey []byte, cred *models.Credential) error) error {
	m.mu.Lock()
	if err := m.checkUnlockedLocked("change password"); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	cred, err := m.creds.Load()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return &StateError{Op: "change password", State: StateNoKeySet}
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.VerifierHash), []byte(current)) != nil {
		return ErrAuthentication
	}

	newCred, key, err := m.deriveCredential(next)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnlockedLocked("change password"); err != nil {
		wipe(key)
		return err
	}
	if commit != nil {
		if err := commit(m.key, key, newCred); err != nil {
			wipe(key)
			return fmt.Errorf("commit password change: %w", err)
		}
	} else if err := m.creds.Save(newCred); err != nil {
		wipe(key)
		return fmt.Errorf("save credential: %w", err)
	}
	m.installKeyLocked(key)
	return nil
}

// WithKey runs fn with the active session key. The key must not escape fn;
// the manager's lock is held for the duration, so a concurrent expiry or
// Lock() can never hand fn a stale key. Returns a StateError when Locked
// or expired.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnlockedLocked("use key"); err != nil {
		return err
	}
	return fn(m.key)
}

// State returns the current state, applying expiry reactively.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyExpiryLocked()
	return m.state
}

// ExpiresAt returns the session expiry; ok is false unless Unlocked.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyExpiryLocked()
	if m.state != StateUnlocked {
		return time.Time{}, false
	}
	return m.expiresAt, true
}

// SessionID returns the id of the current unlocked session ("" if none).
// The id is rotated on every unlock so stale tokens can be rejected.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyExpiryLocked()
	if m.state != StateUnlocked {
		return ""
	}
	return m.sessionID
}

// ---------- 内部ヘルパー ----------

func (m *Manager) deriveCredential(password string) (*models.Credential, []byte, error) {
	if len(password) < 8 {
		return nil, nil, &util.FieldError{Field: "password", Reason: "must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	salt, err := util.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	key := util.DeriveKey(password, salt, m.iterations)
	cred := &models.Credential{
		ID:           1,
		VerifierHash: string(hash),
		KDFSalt:      base64.RawStdEncoding.EncodeToString(salt),
		Iterations:   m.iterations,
	}
	return cred, key, nil
}

func (m *Manager) installKeyLocked(key []byte) {
	wipe(m.key)
	m.key = key
	m.sessionID = uuid.New().String()
	m.state = StateUnlocked
	m.expiresAt = time.Now().Add(m.ttl)
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.ttl, m.expire)
}

func (m *Manager) lockLocked() {
	wipe(m.key)
	m.key = nil
	m.sessionID = ""
	m.state = StateLocked
	m.expiresAt = time.Time{}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// expire is the timer callback. It re-checks the deadline under the lock:
// an unlock that happened after the timer fired must not be torn down.
func (m *Manager) expire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyExpiryLocked()
}

func (m *Manager) applyExpiryLocked() {
	if m.state == StateUnlocked && time.Now().After(m.expiresAt) {
		m.lockLocked()
	}
}

func (m *Manager) checkUnlockedLocked(op string) error {
	m.applyExpiryLocked()
	if m.state != StateUnlocked {
		return &StateError{Op: op, State: m.state}
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
