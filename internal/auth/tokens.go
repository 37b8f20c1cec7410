// Package auth issues and verifies operator tokens. A verified token yields
// the OperatorContext that scopes every store call.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// OperatorClaims holds the JWT claims of an operator token. The subject is
// the operator's owner id.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 operator tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager returns a TokenManager. The secret must not be empty.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is empty")
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for ownerID and its expiry.
func (m *TokenManager) Issue(ownerID string) (string, time.Time, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", time.Time{}, errors.New("auth: owner id is empty")
	}
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ownerID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, expiry and issuer and returns the operator.
// Every failure wraps core.ErrNotAuthenticated.
func (m *TokenManager) Verify(tokenString string) (core.OperatorContext, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return core.OperatorContext{}, fmt.Errorf("%w: %w", core.ErrNotAuthenticated, err)
	}
	op := core.Operator(claims.Subject)
	if !op.Valid() {
		return core.OperatorContext{}, fmt.Errorf("%w: token has no subject", core.ErrNotAuthenticated)
	}
	return op, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
