// Package auth verifies caller bearer tokens in front of the relay routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrNotConfigured is returned when no signing secret was supplied.
var ErrNotConfigured = errors.New("auth: signing secret not configured")

// TokenValidator validates structural and contextual properties of JWT tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures the supplied token satisfies issuer, audience, expiry, and algorithm requirements.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}

	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}

	return jwt.Validate(tok, options...)
}

// Verifier checks HS256 signatures with a shared secret and then applies the
// validator rules.
type Verifier struct {
	Secret    []byte
	Validator TokenValidator
}

// Verify parses raw, checks its signature and claims, and returns the token.
func (v Verifier) Verify(raw string, now time.Time) (jwt.Token, error) {
	if len(v.Secret) == 0 {
		return nil, ErrNotConfigured
	}
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, errors.New("auth: token is not signed")
	}
	algorithm := sigs[0].ProtectedHeaders().Algorithm()

	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, v.Secret), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("auth: verify token: %w", err)
	}
	validator := v.Validator
	if validator.Algorithm == "" {
		validator.Algorithm = jwa.HS256
	}
	if err := validator.Validate(tok, algorithm, now); err != nil {
		return nil, err
	}
	return tok, nil
}
