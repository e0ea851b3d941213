package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/models"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func del(user string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", user, err)
	}
	return nil
}

// GetConnectionString retrieves the database connection string from the OS keyring.
// Returns ErrNotFound if no credentials are stored.
func GetConnectionString() (string, error) {
	return get(constants.ConnectionKeyringUser)
}

// SetConnectionString stores the database connection string in the OS keyring.
func SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, constants.ConnectionKeyringUser, connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// DeleteConnectionString removes the database connection string from the OS keyring.
func DeleteConnectionString() error {
	return del(constants.ConnectionKeyringUser)
}

// SessionStore persists the authenticated session between runs
type SessionStore interface {
	LoadSession() (*models.Session, error)
	SaveSession(s *models.Session) error
	ClearSession() error
}

// Sessions keeps the session as JSON under the app's keyring service
type Sessions struct{}

var _ SessionStore = Sessions{}

func (Sessions) LoadSession() (*models.Session, error) {
	raw, err := get(constants.SessionKeyringUser)
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("stored session is corrupt: %w", err)
	}
	return &s, nil
}

func (Sessions) SaveSession(s *models.Session) error {
	if s == nil || s.AccessToken == "" {
		return errors.New("session has no access token")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := keyring.Set(constants.AppName, constants.SessionKeyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store session in keyring: %w", err)
	}
	return nil
}

// ClearSession removes the stored session. A missing session is not an error.
func (Sessions) ClearSession() error {
	if err := del(constants.SessionKeyringUser); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// MemorySessions keeps the session for the lifetime of the process. It
// stands in for the OS keyring when none is available.
type MemorySessions struct {
	mu      sync.Mutex
	session *models.Session
}

var _ SessionStore = (*MemorySessions)(nil)

func (m *MemorySessions) LoadSession() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrNotFound
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemorySessions) SaveSession(s *models.Session) error {
	if s == nil || s.AccessToken == "" {
		return errors.New("session has no access token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemorySessions) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
