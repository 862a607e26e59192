// Package securestore provides secure key/value storage for small strings
// such as device identifiers and push tokens.
//
// Three backends with different security and deployment tradeoffs:
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - File: Local filesystem storage with atomic writes and secure permissions
//   - Memory: Process-local storage for tests and hosts that persist elsewhere
package securestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("securestore: key not found")

// Store reads, writes, and deletes small string values by key.
//
// Implementations must be safe for concurrent use. Set overwrites any
// existing value. Delete of an absent key is not an error.
type Store interface {
	// Get returns the stored value. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set persists the value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value stored under key, if any.
	Delete(ctx context.Context, key string) error
}
