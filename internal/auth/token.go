package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken is returned for tampered, expired or malformed session cookies
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionClaims are carried by the session cookie. The JWT ID is the session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionTokenManager signs and verifies session cookie values
type SessionTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionTokenManager creates a SessionTokenManager
func NewSessionTokenManager(secret string, ttl time.Duration) *SessionTokenManager {
	return &SessionTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the session lifetime
func (tm *SessionTokenManager) TTL() time.Duration {
	return tm.ttl
}

// Sign creates the cookie value for a session
func (tm *SessionTokenManager) Sign(sessionID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a cookie value and returns the session ID
func (tm *SessionTokenManager) Parse(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidSessionToken
	}
	if claims.ID == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.ID, nil
}
