// Package auth issues and validates the signed tokens carried by the
// francaverso_session cookie. The cookie used to hold a bare user id; tokens
// are now HS256-signed and expiring so a forged or stale cookie is rejected
// before any data access.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookie is the name the browser knows the session under.
	SessionCookie = "francaverso_session"

	// PasswordLoginTTL applies to the legacy shared-password login.
	PasswordLoginTTL = 7 * 24 * time.Hour
	// FederatedLoginTTL applies to federated (Firebase) sign-ins.
	FederatedLoginTTL = 30 * 24 * time.Hour
)

type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type SessionService struct {
	secret []byte
}

func NewSessionService(secret string) *SessionService {
	return &SessionService{secret: []byte(secret)}
}

// Issue returns a signed session token for userID valid for ttl.
func (s *SessionService) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Parse validates the token signature and expiry and returns the user id.
func (s *SessionService) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.UserID, nil
}
