// Package tokenstore persists the mapping between platform-issued push
// tokens and backend-issued registration tokens on top of a secure store.
//
// The store is the single writer of that state: callers never touch the
// underlying keys directly, and every read-modify-write sequence is
// serialized by an internal mutex so concurrent registrations cannot
// interleave a stale read with a fresh write.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/florianilch/pushkit/internal/securestore"
)

// Secure store keys. The mapping table is a JSON object of
// platform-token → backend-token entries.
const (
	keyDeviceID            = "device_id"
	keyCurrentBackendToken = "current_backend_token"
	keyLastPlatformToken   = "last_platform_token"
	keyTokenMappings       = "token_mappings"
)

// Store owns the persisted token state.
type Store struct {
	mu    sync.Mutex
	store securestore.Store
}

// New creates a Store over the given secure store backend.
func New(store securestore.Store) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("missing secure store")
	}

	return &Store{
		store: store,
	}, nil
}

// DeviceID returns the stable installation identifier, generating and
// persisting a new one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.Get(ctx, keyDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, securestore.ErrNotFound) {
		return "", fmt.Errorf("reading device id: %w", err)
	}

	id = uuid.NewString()
	if err := s.store.Set(ctx, keyDeviceID, id); err != nil {
		return "", fmt.Errorf("persisting device id: %w", err)
	}
	return id, nil
}

// LastPlatformToken returns the most recently recorded platform token.
// The boolean reports whether one has ever been recorded.
func (s *Store) LastPlatformToken(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastPlatformToken(ctx)
}

// Changed reports whether platformToken differs from the last recorded one,
// or whether no token was ever recorded. It also returns the previous token,
// if any. This is the sole trigger for forcing re-registration.
func (s *Store) Changed(ctx context.Context, platformToken string) (changed bool, previous string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok, err := s.lastPlatformToken(ctx)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return true, "", nil
	}
	return last != platformToken, last, nil
}

// BackendToken returns the backend token mapped to platformToken.
// The boolean reports whether a mapping exists.
func (s *Store) BackendToken(ctx context.Context, platformToken string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings, err := s.readMappings(ctx)
	if err != nil {
		return "", false, err
	}
	token, ok := mappings[platformToken]
	return token, ok, nil
}

// CurrentBackendToken returns the backend token for the most recently
// recorded platform token. The boolean reports whether one exists.
func (s *Store) CurrentBackendToken(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.store.Get(ctx, keyCurrentBackendToken)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading current backend token: %w", err)
	}
	return token, true, nil
}

// RecordMapping persists the platformToken → backendToken entry and marks
// platformToken as the last observed one.
//
// The mapping table is written before the last-token pointer: the secure
// store cannot guarantee atomicity across keys, so a crash mid-write leaves
// the mapping complete with a stale pointer, never a pointer to a missing
// mapping.
func (s *Store) RecordMapping(ctx context.Context, platformToken, backendToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings, err := s.readMappings(ctx)
	if err != nil {
		return err
	}
	mappings[platformToken] = backendToken

	if err := s.writeMappings(ctx, mappings); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyCurrentBackendToken, backendToken); err != nil {
		return fmt.Errorf("persisting current backend token: %w", err)
	}
	if err := s.store.Set(ctx, keyLastPlatformToken, platformToken); err != nil {
		return fmt.Errorf("persisting last platform token: %w", err)
	}
	return nil
}

// ClearMapping removes the entry for platformToken. Used when the platform
// token changes, so a stale backend token is never served for a token that
// is no longer current.
func (s *Store) ClearMapping(ctx context.Context, platformToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings, err := s.readMappings(ctx)
	if err != nil {
		return err
	}
	if _, ok := mappings[platformToken]; !ok {
		return nil
	}
	delete(mappings, platformToken)

	return s.writeMappings(ctx, mappings)
}

// DeleteAll removes every persisted token entry and the last-token pointer.
// The device id survives: it identifies the installation, not a registration.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{keyTokenMappings, keyCurrentBackendToken, keyLastPlatformToken} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) lastPlatformToken(ctx context.Context) (string, bool, error) {
	token, err := s.store.Get(ctx, keyLastPlatformToken)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading last platform token: %w", err)
	}
	return token, true, nil
}

func (s *Store) readMappings(ctx context.Context) (map[string]string, error) {
	raw, err := s.store.Get(ctx, keyTokenMappings)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading token mappings: %w", err)
	}

	mappings := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		return nil, fmt.Errorf("decoding token mappings: %w", err)
	}
	return mappings, nil
}

func (s *Store) writeMappings(ctx context.Context, mappings map[string]string) error {
	raw, err := json.Marshal(mappings)
	if err != nil {
		return fmt.Errorf("encoding token mappings: %w", err)
	}
	if err := s.store.Set(ctx, keyTokenMappings, string(raw)); err != nil {
		return fmt.Errorf("persisting token mappings: %w", err)
	}
	return nil
}
