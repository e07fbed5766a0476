// Package cache stores serialized analyzer results for a bounded time.
//
// Two backends share the same observable behavior: MemoryStore keeps entries
// in process, SQLiteStore persists them to a single database file so repeated
// CLI invocations can reuse results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("cache: store is closed")

// Store is a TTL key/value cache. Get reports a miss with found=false and no
// error, including for expired entries.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// New builds the store named by backend. dir is only used by the sqlite backend.
func New(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := OpenSQLite(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// GetJSON decodes a cached value into v. A value that no longer decodes is
// treated as a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// NopStore never stores anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopStore) Delete(context.Context, string) error { return nil }
func (NopStore) Clear(context.Context) error { return nil }
func (NopStore) Close() error { return nil }
