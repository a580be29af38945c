package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultTokenLength is the length of generated device tokens.
	DefaultTokenLength = 100

	saltBytes = 16
)

// Token is a freshly derived device credential. Only Salt and Hash are
// persisted; Value goes to the client.
type Token struct {
	Value string
	Salt  string
	Hash  string
}

// Codec generates and checks salted SHA-256 token digests.
type Codec struct {
	Length int
}

// Derive generates a random token value. When salt is empty a random 16 byte
// hex salt is generated.
func (c Codec) Derive(salt string) (Token, error) {
	n := c.Length
	if n <= 0 {
		n = DefaultTokenLength
	}
	value, err := RandomString(n)
	if err != nil {
		return Token{}, err
	}
	if salt == "" {
		b := make([]byte, saltBytes)
		if _, err := rand.Read(b); err != nil {
			return Token{}, err
		}
		salt = hex.EncodeToString(b)
	}
	return Token{Value: value, Salt: salt, Hash: Digest(value, salt)}, nil
}

// Digest is hex(sha256(value + salt)).
func Digest(value, salt string) string {
	sum := sha256.Sum256([]byte(value + salt))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest and compares it in constant time.
func Verify(value, salt, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(value, salt)), []byte(hash)) == 1
}

// RandomString draws n characters uniformly from the alphanumeric alphabet.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("random string length must be positive")
	}
	size := big.NewInt(int64(len(alphanumeric)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}
