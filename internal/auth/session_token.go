// Package auth implements session establishment and validation. A session is
// a signed JWT whose jti is the session id bound to a device row; invalidating
// a session means releasing its device, after which the registry no longer
// recognizes the id.
package auth

import (
	"fmt"
	"time"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by a session token. The RegisteredClaims
// ID field holds the session id.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionID returns the session identifier (the jti claim)
func (c *SessionClaims) SessionID() string {
	return c.ID
}

// SessionManager issues and validates session tokens
type SessionManager struct {
	secret []byte
	expiry time.Duration
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(secret string, expiry time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Issue establishes a session token for the user with the given session id
func (sm *SessionManager) Issue(user *models.User, sessionID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token
func (sm *SessionManager) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("session token missing session id")
	}

	return claims, nil
}
