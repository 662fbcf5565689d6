package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/session"
)

// csrfTokenBytes is the size of the random token before hex encoding (256 bits).
const csrfTokenBytes = 32

// TokenIssuer issues and validates the per-session anti-forgery token
type TokenIssuer struct {
	random io.Reader
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer backed by crypto/rand
func NewTokenIssuer() *TokenIssuer {
	return &TokenIssuer{
		random: rand.Reader,
		now:    time.Now,
	}
}

// NewTokenIssuerWithReader creates a TokenIssuer reading randomness from r
func NewTokenIssuerWithReader(r io.Reader) *TokenIssuer {
	return &TokenIssuer{
		random: r,
		now:    time.Now,
	}
}

// IssueToken returns the session's token, creating one if the session has none.
// An existing token is never regenerated.
func (i *TokenIssuer) IssueToken(sess *session.Session) (models.CSRFToken, error) {
	if sess.CSRF != nil && sess.CSRF.Value != "" {
		return *sess.CSRF, nil
	}

	randomBytes := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(i.random, randomBytes); err != nil {
		return models.CSRFToken{}, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	token := models.CSRFToken{
		Value:    hex.EncodeToString(randomBytes),
		IssuedAt: i.now(),
	}
	sess.SetCSRF(token)
	return token, nil
}

// Validate reports whether supplied equals the session's token.
// The comparison is constant-time; a missing token on either side fails.
func (i *TokenIssuer) Validate(sess *session.Session, supplied string) bool {
	if sess == nil || sess.CSRF == nil || sess.CSRF.Value == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sess.CSRF.Value), []byte(supplied)) == 1
}
