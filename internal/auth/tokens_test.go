package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", "leadpipe", time.Hour)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t)

	token, exp, err := m.Issue("op-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	op, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, core.Operator("op-1"), op)
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	_, err := NewTokenManager("", "leadpipe", time.Hour)
	assert.Error(t, err)
}

func TestIssue_EmptyOwner(t *testing.T) {
	_, _, err := newTestManager(t).Issue("  ")
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	m := newTestManager(t)
	good, _, err := m.Issue("op-1")
	require.NoError(t, err)

	other, err := NewTokenManager("another-secret", "leadpipe", time.Hour)
	require.NoError(t, err)
	wrongKey, _, err := other.Issue("op-1")
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager("test-secret", "someone-else", time.Hour)
	require.NoError(t, err)
	wrongIssuer, _, err := otherIssuer.Issue("op-1")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "leadpipe",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "leadpipe",
		Subject: "op-1",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "leadpipe",
		Subject:   "op-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"empty":        "",
		"tampered":     good + "x",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			op, err := m.Verify(token)
			assert.ErrorIs(t, err, core.ErrNotAuthenticated)
			assert.False(t, op.Valid())
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("op-1")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}
