package auth

import (
	"context"
	"errors"
	"log"
)

// ErrAccessDenied is the reason attached to every denied request.
var ErrAccessDenied = errors.New("access denied")

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	ReasonPublic   = "public"
	ReasonVerified = "verified"
	ReasonDenied   = "access_denied"
)

// TokenVerifier checks a device token.
type TokenVerifier interface {
	VerifyAuthToken(ctx context.Context, token string) (bool, error)
}

// Gate decides whether a request may reach its handler.
type Gate struct {
	verifier TokenVerifier
}

// NewGate builds a gate over the device token verifier.
func NewGate(v TokenVerifier) *Gate {
	return &Gate{verifier: v}
}

// Decide allows public operations without any lookup. Everything else needs
// a valid device token. Store failures are logged and reported as a denial,
// so a caller cannot tell an outage from a bad token.
func (g *Gate) Decide(ctx context.Context, public bool, token string) Decision {
	if public {
		return Decision{Allowed: true, Reason: ReasonPublic}
	}
	ok, err := g.verifier.VerifyAuthToken(ctx, token)
	if err != nil {
		log.Printf("gate: token verification failed: %v", err)
		return Decision{Reason: ReasonDenied}
	}
	if !ok {
		return Decision{Reason: ReasonDenied}
	}
	return Decision{Allowed: true, Reason: ReasonVerified}
}
