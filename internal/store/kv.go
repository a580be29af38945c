package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable wraps transport failures talking to the backing store.
	ErrUnavailable = errors.New("store unavailable")
)

// KV is the key-value contract shared by the auth tokens and the account records.
// A ttl of zero stores the value without expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	// MGet returns values aligned with keys; a nil entry means the key is absent.
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ KV = (*Redis)(nil)
	_ KV = (*Memory)(nil)
)
