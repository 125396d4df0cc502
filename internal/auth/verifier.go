package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken      = errors.New("missing session token")
	ErrInvalidToken      = errors.New("invalid session token")
	ErrUnauthorizedParty = errors.New("token issued for another origin")
)

// Claims are the parts of a Clerk session token the API uses.
type Claims struct {
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks RS256 session tokens against the instance's public key.
type Verifier struct {
	key     *rsa.PublicKey
	parties []string
	leeway  time.Duration
}

// NewVerifier parses a PEM encoded RSA public key. An empty parties list
// accepts tokens from any origin.
func NewVerifier(publicKeyPEM string, parties []string, leeway time.Duration) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	return &Verifier{key: key, parties: parties, leeway: leeway}, nil
}

// Verify validates signature, expiry and authorized party.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	if len(v.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, ErrUnauthorizedParty
	}
	return claims, nil
}
