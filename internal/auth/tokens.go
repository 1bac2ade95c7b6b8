package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Sign issues an access token for the user.
func (t *TokenIssuer) Sign(userID, role string) (string, time.Time, error) {
	now := t.now()
	expiry := now.Add(t.TTL)
	tok, err := jwt.NewBuilder().
		Issuer(t.Issuer).
		Audience([]string{t.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(expiry).
		Claim("role", role).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return string(signed), expiry, nil
}

// Verify parses and validates an access token, returning subject and role.
func (t *TokenIssuer) Verify(raw string) (userID, role string, err error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, t.Secret),
		jwt.WithIssuer(t.Issuer),
		jwt.WithAudience(t.Audience),
		jwt.WithAcceptableSkew(30*time.Second),
		jwt.WithClock(jwt.ClockFunc(t.now)),
		jwt.WithValidate(true),
	)
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}
	userID = tok.Subject()
	if v, ok := tok.Get("role"); ok {
		if s, ok := v.(string); ok {
			role = s
		}
	}
	return userID, role, nil
}

// NewOpaqueToken returns a random token and the sha256 hash stored for it.
// The raw token goes to the client; only the hash touches the database.
func NewOpaqueToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken hashes an opaque token for storage or lookup.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
