// Package session holds the bearer token obtained at login. A Session is
// created once and never mutated, so it is safe to share between the
// goroutines that fetch dashboard sections.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims are the fields the GrapeIQ API puts in its access tokens.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Session is an authenticated API session.
type Session struct {
	token  string
	claims *Claims
}

// New wraps token. If the token is a JWT its claims are decoded without
// verifying the signature; the API verifies it on every request. Opaque
// tokens are accepted and carry no claims.
func New(token string) *Session {
	s := &Session{token: token}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		s.claims = claims
	}
	return s
}

// Token returns the raw bearer token, or "" for a nil session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// Subject returns the "sub" claim (the username), if present.
func (s *Session) Subject() string {
	if s == nil || s.claims == nil {
		return ""
	}
	return s.claims.Subject
}

// TenantID returns the tenant the token was issued for, if present.
func (s *Session) TenantID() string {
	if s == nil || s.claims == nil {
		return ""
	}
	return s.claims.TenantID
}

// ExpiresAt returns the token expiry and whether the token carries one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s == nil || s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return s.claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an expiry that is before now.
// Tokens without one never report expired.
func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && now.After(exp)
}
