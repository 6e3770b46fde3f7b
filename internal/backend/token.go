package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of a backend access token the portal reads.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken reads the identity and expiry of a backend access token.
// When secret is empty the signature is not verified; the backend still
// verifies it on every call.
func ParseAccessToken(raw string, secret []byte) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("access token is not valid")
	}
	return claims, nil
}

// SignAccessToken issues an HS256 access token. Used by the in-memory backend.
func SignAccessToken(subject, email string, secret []byte, issuedAt time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := issuedAt.Add(ttl)
	claims := &TokenClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
