package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"absensi/internal/store"
)

const (
	accountPrefix = "account-"
	windowKey     = "times"
)

// Repository persists accounts and the working window in the key-value store.
type Repository struct {
	kv store.KV
}

// NewRepository creates a repo.
func NewRepository(kv store.KV) *Repository {
	return &Repository{kv: kv}
}

func accountKey(id string) string { return accountPrefix + id }

// Get loads one account. A missing key yields ErrAccountNotFound.
func (r *Repository) Get(ctx context.Context, id string) (Account, error) {
	if id == "" {
		return Account{}, ErrAccountNotFound
	}
	raw, err := r.kv.Get(ctx, accountKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	var acc Account
	if err := json.Unmarshal([]byte(raw), &acc); err != nil {
		return Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	return acc, nil
}

// Put writes the whole account without expiry. Concurrent writers race and the
// last write wins.
func (r *Repository) Put(ctx context.Context, acc Account) error {
	if acc.ID == "" {
		return fmt.Errorf("%w: account id required", ErrInvalidInput)
	}
	if acc.History == nil {
		acc.History = []Record{}
	}
	b, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, accountKey(acc.ID), string(b), 0)
}

// Delete removes an account. Deleting a missing account is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.kv.Del(ctx, accountKey(id))
}

// List returns every stored account in key order. Keys that vanish between
// the scan and the fetch are skipped.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	keys, err := r.kv.ScanPrefix(ctx, accountPrefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)
	vals, err := r.kv.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		var acc Account
		if err := json.Unmarshal([]byte(*v), &acc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		if acc.ID == "" {
			acc.ID = strings.TrimPrefix(keys[i], accountPrefix)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Window returns the stored working window; ok is false when none is set.
func (r *Repository) Window(ctx context.Context) (w Window, ok bool, err error) {
	raw, err := r.kv.Get(ctx, windowKey)
	if errors.Is(err, store.ErrNotFound) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, err
	}
	w, err = ParseWindow(raw)
	if err != nil {
		return Window{}, false, err
	}
	return w, true, nil
}

// SetWindow stores the working window.
func (r *Repository) SetWindow(ctx context.Context, w Window) error {
	return r.kv.Set(ctx, windowKey, w.String(), 0)
}
