// Package auth verifies bearer tokens issued by the identity service and
// resolves them into a domain.Principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue signs an HS256 token for userID with role. The identity service owns
// issuance in production; this is used by tooling and tests.
func (t *Tokens) Issue(userID uuid.UUID, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Tokens.Issue:%w", err)
	}
	return s, nil
}

// Verify parses and validates a token. Only user and admin roles are accepted
// from the outside; the system role is reserved for background jobs.
func (t *Tokens) Verify(token string) (domain.Principal, error) {
	const op = "auth.Tokens.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...); err != nil {
		return domain.Principal{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	switch claims.Role {
	case domain.RoleUser, domain.RoleAdmin:
	case "":
		claims.Role = domain.RoleUser
	default:
		return domain.Principal{}, fmt.Errorf("%s: %w: role %q", op, ErrInvalidToken, claims.Role)
	}

	return domain.Principal{UserID: userID, Role: claims.Role}, nil
}
