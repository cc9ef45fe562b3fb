// Package token signs and validates the HS256 session tokens handed to clients.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/domain"
)

// Claims is the signed payload of a session token
type Claims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// Issuer implements domain.TokenIssuer with a shared secret
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

// Option configures an Issuer
type Option func(*Issuer)

// WithClock overrides the time source used for iat/exp and for expiry checks
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates a token issuer. A non-positive lifetime falls back to the default.
func NewIssuer(secret string, lifetime time.Duration, issuerName string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, domain.WrapRequiredFieldMissing("token secret")
	}
	if lifetime <= 0 {
		lifetime = constants.DefaultTokenLifetime
	}

	i := &Issuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		issuer:   issuerName,
		now:      time.Now,
		// Expiry is checked against the injected clock, not jwt's time.Now
		parser: &jwt.Parser{
			ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
			SkipClaimsValidation: true,
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Lifetime returns the validity window of issued tokens
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue signs a token for username expiring lifetime from now
func (i *Issuer) Issue(username string) (string, error) {
	now := i.now()
	claims := Claims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(i.lifetime).Unix(),
			Issuer:    i.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the username encoded in a valid, unexpired token
func (i *Issuer) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	_, err := i.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", &domain.DomainError{
			Code:    domain.ErrInvalidSignature.Code,
			Message: domain.ErrInvalidSignature.Message,
			Cause:   unwrapValidation(err),
		}
	}

	if !claims.VerifyExpiresAt(i.now().Unix(), true) {
		return "", domain.ErrTokenExpired
	}
	if claims.Username == "" {
		return "", &domain.DomainError{
			Code:    domain.ErrInvalidSignature.Code,
			Message: "token carries no username",
		}
	}
	return claims.Username, nil
}

func unwrapValidation(err error) error {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) && ve.Inner != nil {
		return ve.Inner
	}
	return err
}
