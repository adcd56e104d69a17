package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/tally/internal/constants"
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

func set(user, secret string) error {
	if err := keyring.Set(constants.AppName, user, secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func del(user string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// GetConnectionString retrieves the database connection string from the OS keyring.
// Returns ErrNotFound if no credentials are stored.
func GetConnectionString() (string, error) {
	return get(constants.DefaultKeyringUser)
}

// SetConnectionString stores the database connection string in the OS keyring.
func SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	return set(constants.DefaultKeyringUser, connStr)
}

// DeleteConnectionString removes the database connection string from the OS keyring.
func DeleteConnectionString() error {
	return del(constants.DefaultKeyringUser)
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// TokenStore persists the session refresh token so a sign-in survives restarts.
// Each backend target gets its own entry, keyed by scope.
type TokenStore struct {
	scope string
}

// NewTokenStore returns a TokenStore for the given backend scope, e.g. "sqlite"
// or a server URL.
func NewTokenStore(scope string) *TokenStore {
	return &TokenStore{scope: scope}
}

func (s *TokenStore) user() string {
	if s.scope == "" {
		return constants.SessionKeyringUser
	}
	return constants.SessionKeyringUser + ":" + s.scope
}

// Load returns the stored refresh token, or ErrNotFound.
func (s *TokenStore) Load() (string, error) {
	return get(s.user())
}

// Save stores the refresh token, replacing any previous one.
func (s *TokenStore) Save(token string) error {
	if token == "" {
		return errors.New("refresh token cannot be empty")
	}
	return set(s.user(), token)
}

// Clear removes the stored refresh token. A missing token is not an error.
func (s *TokenStore) Clear() error {
	if err := del(s.user()); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
