package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/suppcheck/internal/constants"
)

// ErrKeyringUnavailable is returned when the OS keyring cannot be reached
var ErrKeyringUnavailable = errors.New("OS keyring is not available")

// KeyringStore keeps each value as a secret in the OS keyring, using the
// key as the keyring account under a single service name.
type KeyringStore struct {
	service string
}

// NewKeyringStore parses a "keyring:" or "keyring:<service>" location.
func NewKeyringStore(location string) *KeyringStore {
	service := strings.TrimSpace(strings.TrimPrefix(location, constants.KeyringPrefix))
	if service == "" {
		service = constants.AppName
	}
	return &KeyringStore{service: service}
}

// IsKeyringLocation reports whether a --config value selects the keyring store.
func IsKeyringLocation(location string) bool {
	return strings.HasPrefix(location, constants.KeyringPrefix)
}

func (s *KeyringStore) Init() error {
	return s.Load()
}

// Load probes the keyring with a read; a missing entry still proves it is reachable.
func (s *KeyringStore) Load() error {
	_, err := keyring.Get(s.service, "availability-probe")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
}

func (s *KeyringStore) Close() error {
	return nil
}

func (s *KeyringStore) Get(key string) (string, error) {
	v, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func (s *KeyringStore) Put(key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("failed to store value in keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(s.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete value from keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) GetConfigPath() string {
	return constants.KeyringPrefix + s.service
}

// GetConnectionString returns a PostgreSQL connection string saved in the OS
// keyring, or ErrNotFound.
func GetConnectionString() (string, error) {
	connStr, err := keyring.Get(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return connStr, nil
}

// SetConnectionString saves a PostgreSQL connection string in the OS keyring.
func SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, constants.DefaultKeyringUser, connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// DeleteConnectionString removes the saved PostgreSQL connection string.
func DeleteConnectionString() error {
	if err := keyring.Delete(constants.AppName, constants.DefaultKeyringUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}
