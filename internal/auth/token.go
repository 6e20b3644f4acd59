package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SessionTokenManager signs and validates the session cookie value. The JWT
// carries only the session id; the session view itself lives server-side.
type SessionTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionTokenManager builds a new manager.
func NewSessionTokenManager(secret string, ttl time.Duration) *SessionTokenManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionTokenManager{secret: []byte(secret), ttl: ttl}
}

// SessionClaims describes the cookie JWT payload.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Generate builds and signs a cookie token for the session.
func (tm *SessionTokenManager) Generate(sessionID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse validates the cookie token and returns the session id.
func (tm *SessionTokenManager) Parse(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.SessionID, nil
}

// TTL exposes the configured session lifetime.
func (tm *SessionTokenManager) TTL() time.Duration {
	return tm.ttl
}
