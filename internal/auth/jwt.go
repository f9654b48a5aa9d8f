// Package auth adapts the external identity provider for the API.
//
// The provider issues JWT bearer tokens; this package only verifies them and
// extracts the caller's identity. Token issuance, sessions and account
// management all live with the provider.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rashik/snipvault/internal/model"
)

// Verifier validates provider-issued tokens with a shared HMAC secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a Verifier for tokens signed by the given issuer.
// The secret should be at least 32 bytes of random data in production.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	if issuer == "" {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// claims is the provider's token payload: the standard registered claims
// plus the user's email. The subject carries the user id.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses and validates a bearer token and returns the identity it
// asserts. Validation covers the signature, expiry, issuer, and the signing
// algorithm (pinned to HS256 so an attacker cannot downgrade it).
func (v *Verifier) Verify(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("auth: token expired")
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return model.Identity{ID: c.Subject, Email: c.Email}, nil
}

// Issue signs a token asserting the given identity, valid for d.
// The real provider issues production tokens; this exists for tests and
// local development against the same verification path.
func (v *Verifier) Issue(ident model.Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    v.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}
