// Package session implements the role ladder, login attempts, and the
// server-side session bookkeeping of spec.md §4.5. Password hashing and
// token signing follow taibuivan-yomira's internal/platform/sec package,
// adapted from its RS256 key-pair scheme to a single symmetric secret —
// this server has no separate signing/verifying party to hand a public
// key to, so HS256 gives a server-checkable token with one fewer moving
// part.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hhc/scripture-sync/internal/store/sqlstore"
)

// Claims is the payload of the session token: the username and role.
// Store.Verify still reads the session row on every request.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"usr"`
	Role     string `json:"rol"`
}

// TokenSigner signs and verifies session tokens.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner builds a signer from the configured JWT secret.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Sign issues a token for username/role, valid until expiresAt. Each
// token carries a fresh random id, so two logins at the same instant get
// distinct tokens. The caller (Store.issue) sets expiresAt to the
// configured session lifetime; a token is issued once per login and is
// not rotated or reissued while its session lasts.
func (s *TokenSigner) Sign(username string, role sqlstore.Role, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: username,
		Role:     string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a token's signature and expiry, returning its claims.
func (s *TokenSigner) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("session: unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("session: invalid token claims")
	}
	return claims, nil
}
