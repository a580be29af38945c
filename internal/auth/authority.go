package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"absensi/internal/attendance"
	"absensi/internal/store"
)

const (
	authTokenPrefix   = "auth_token-"
	accessTokenPrefix = "access_token-"

	sessionTokenLength = 64
)

// AccountSource resolves the account bound to a session.
type AccountSource interface {
	Get(ctx context.Context, id string) (attendance.Account, error)
}

type authEntry struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
}

type accessEntry struct {
	Token   string `json:"token"`
	OwnerID string `json:"user_id"`
}

// Authority issues and checks device tokens and session tokens. Both live in
// the key-value store keyed by their own value, and an absent key means the
// token is invalid or expired.
type Authority struct {
	kv         store.KV
	accounts   AccountSource
	codec      Codec
	authTTL    time.Duration
	sessionTTL time.Duration
}

// AuthorityConfig sets token lifetimes. SessionTTL of zero stores sessions
// without expiry.
type AuthorityConfig struct {
	TokenLength int
	AuthTTL     time.Duration
	SessionTTL  time.Duration
}

// NewAuthority wires the token store and the account lookup.
func NewAuthority(kv store.KV, accounts AccountSource, cfg AuthorityConfig) *Authority {
	if cfg.AuthTTL <= 0 {
		cfg.AuthTTL = 24 * time.Hour
	}
	return &Authority{
		kv:         kv,
		accounts:   accounts,
		codec:      Codec{Length: cfg.TokenLength},
		authTTL:    cfg.AuthTTL,
		sessionTTL: cfg.SessionTTL,
	}
}

// IssueAuthToken derives a device token, stores its salt and hash with the
// auth TTL and returns the raw value.
func (a *Authority) IssueAuthToken(ctx context.Context) (string, error) {
	tok, err := a.codec.Derive("")
	if err != nil {
		return "", fmt.Errorf("derive auth token: %w", err)
	}
	b, err := json.Marshal(authEntry{Salt: tok.Salt, Hash: tok.Hash})
	if err != nil {
		return "", err
	}
	if err := a.kv.Set(ctx, authTokenPrefix+tok.Value, string(b), a.authTTL); err != nil {
		return "", err
	}
	return tok.Value, nil
}

// VerifyAuthToken reports whether token is a live device token. Empty,
// unknown, expired and mismatching tokens yield false with a nil error; only
// store failures return an error.
func (a *Authority) VerifyAuthToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	raw, err := a.kv.Get(ctx, authTokenPrefix+token)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var entry authEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return false, nil
	}
	return Verify(token, entry.Salt, entry.Hash), nil
}

// IssueSession binds a new random token to accountID.
func (a *Authority) IssueSession(ctx context.Context, accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("account id required")
	}
	token, err := RandomString(sessionTokenLength)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(accessEntry{Token: token, OwnerID: accountID})
	if err != nil {
		return "", err
	}
	if err := a.kv.Set(ctx, accessTokenPrefix+token, string(b), a.sessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession returns the account bound to token. ok is false when the
// session is unknown, expired, or its account no longer exists.
func (a *Authority) ResolveSession(ctx context.Context, token string) (acc attendance.Account, ok bool, err error) {
	if token == "" {
		return attendance.Account{}, false, nil
	}
	raw, err := a.kv.Get(ctx, accessTokenPrefix+token)
	if errors.Is(err, store.ErrNotFound) {
		return attendance.Account{}, false, nil
	}
	if err != nil {
		return attendance.Account{}, false, err
	}
	var entry accessEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.OwnerID == "" {
		return attendance.Account{}, false, nil
	}
	acc, err = a.accounts.Get(ctx, entry.OwnerID)
	if errors.Is(err, attendance.ErrAccountNotFound) {
		return attendance.Account{}, false, nil
	}
	if err != nil {
		return attendance.Account{}, false, err
	}
	return acc, true, nil
}

// RevokeSession deletes the session. Revoking an unknown token is a no-op.
func (a *Authority) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.kv.Del(ctx, accessTokenPrefix+token)
}
