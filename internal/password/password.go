// Package password derives and verifies account passwords with Argon2id.
//
// Accounts store the result as "salt|hash", both hex encoded.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformed is returned by Split when a stored credential is not "salt|hash".
var ErrMalformed = errors.New("malformed password credential")

// Params are the Argon2id cost parameters.
type Params struct {
	MemoryKiB uint32
	Time      uint32
	Threads   uint8
	SaltLen   uint32
	KeyLen    uint32
}

// DefaultParams follows the RFC 9106 second recommended option.
func DefaultParams() Params {
	return Params{MemoryKiB: 64 * 1024, Time: 3, Threads: 4, SaltLen: 16, KeyLen: 32}
}

// Hasher derives and verifies passwords with fixed parameters.
type Hasher struct {
	p Params
}

// New returns a Hasher. Zero fields fall back to DefaultParams.
func New(p Params) Hasher {
	d := DefaultParams()
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	return Hasher{p: p}
}

// Derive returns a fresh hex salt and the hex Argon2id hash of plain.
func (h Hasher) Derive(plain string) (salt, hash string, err error) {
	b := make([]byte, h.p.SaltLen)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(b)
	return salt, h.digest(plain, salt), nil
}

// Verify reports whether plain matches the stored salt and hash.
func (h Hasher) Verify(plain, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}
	got := h.digest(plain, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

func (h Hasher) digest(plain, salt string) string {
	key := argon2.IDKey([]byte(plain), []byte(salt), h.p.Time, h.p.MemoryKiB, h.p.Threads, h.p.KeyLen)
	return hex.EncodeToString(key)
}

// Join encodes a salt and hash into the stored form.
func Join(salt, hash string) string { return salt + "|" + hash }

// Split decodes the stored form.
func Split(stored string) (salt, hash string, err error) {
	salt, hash, ok := strings.Cut(stored, "|")
	if !ok || salt == "" || hash == "" {
		return "", "", ErrMalformed
	}
	return salt, hash, nil
}
