package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key-at-least-32-chars", "cycleshop-test", 15*time.Minute)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestJWTService()
	token, expiresAt, err := svc.Issue(Principal{UserID: "u1", Username: "asha", Role: RoleManager})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	p, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "asha", p.Username)
	assert.Equal(t, RoleManager, p.Role)
}

func TestIssue_RejectsUnknownRole(t *testing.T) {
	_, _, err := newTestJWTService().Issue(Principal{UserID: "u1", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestVerify_Failures(t *testing.T) {
	svc := newTestJWTService()
	valid, _, err := svc.Issue(Principal{UserID: "u1", Role: RoleSales})
	require.NoError(t, err)

	expired := newTestJWTService()
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue(Principal{UserID: "u1", Role: RoleSales})
	require.NoError(t, err)

	otherIssuer, _, err := NewJWTService("test-secret-key-at-least-32-chars", "someone-else", time.Minute).
		Issue(Principal{UserID: "u1", Role: RoleSales})
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"tampered", valid + "x", ErrInvalidToken},
		{"expired", old, ErrExpiredToken},
		{"wrong issuer", otherIssuer, ErrInvalidToken},
		{"unsigned", noneAlg, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSales.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("guest").Valid())
}
