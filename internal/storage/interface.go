package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no value is stored under the key
	ErrNotFound = errors.New("key not found")
	// ErrNotLoaded is returned when a store is used before Init or Load
	ErrNotLoaded = errors.New("storage not loaded")
	// ErrNotInitialized is returned by Load when the backing file or schema is missing
	ErrNotInitialized = errors.New("storage not initialized, run 'suppcheck init' first")
)

// Provider is a key-value persistence store. Put fully overwrites the value.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Values
	Get(key string) (string, error)
	Put(key, value string) error
	Delete(key string) error

	// Utils
	GetConfigPath() string
}
