package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestTokens_IssueVerify(t *testing.T) {
	tokens := NewTokens("secret", "flightbook", time.Hour)
	userID := uuid.New()

	tok, err := tokens.Issue(userID, domain.RoleAdmin)
	require.NoError(t, err)

	p, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestTokens_Verify_Rejects(t *testing.T) {
	tokens := NewTokens("secret", "flightbook", time.Hour)
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "flightbook",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))

	noExpiry := valid
	noExpiry.ExpiresAt = nil

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"

	badSubject := valid
	badSubject.Subject = "user-42"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", sign(t, "other", Claims{Role: domain.RoleUser, RegisteredClaims: valid})},
		{"expired", sign(t, "secret", Claims{Role: domain.RoleUser, RegisteredClaims: expired})},
		{"no expiry", sign(t, "secret", Claims{Role: domain.RoleUser, RegisteredClaims: noExpiry})},
		{"wrong issuer", sign(t, "secret", Claims{Role: domain.RoleUser, RegisteredClaims: wrongIssuer})},
		{"bad subject", sign(t, "secret", Claims{Role: domain.RoleUser, RegisteredClaims: badSubject})},
		{"system role", sign(t, "secret", Claims{Role: domain.RoleSystem, RegisteredClaims: valid})},
		{"unknown role", sign(t, "secret", Claims{Role: "root", RegisteredClaims: valid})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokens_Verify_DefaultsToUserRole(t *testing.T) {
	tokens := NewTokens("secret", "flightbook", time.Hour)
	userID := uuid.New()

	tok := sign(t, "secret", Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "flightbook",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	p, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, p.Role)
	assert.False(t, p.IsAdmin())
}
