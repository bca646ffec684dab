// Package auth mints and parses the bearer tokens attached to a session.
// The client treats them as opaque; Parse exists for the backend side and
// for tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("token secret is empty")
)

// Claims are the registered claims plus the user's id and role.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   string `json:"role"`
}

// TokenMinter signs HS256 tokens valid for a fixed duration.
type TokenMinter struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time
}

// NewTokenMinter returns a minter. now may be nil, in which case time.Now is used.
func NewTokenMinter(secret []byte, issuer string, validity time.Duration, now func() time.Time) (*TokenMinter, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if now == nil {
		now = time.Now
	}
	return &TokenMinter{secret: secret, issuer: issuer, validity: validity, now: now}, nil
}

// Mint issues a token for userID. Each token carries a random jti.
func (m *TokenMinter) Mint(userID, role string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
		},
		UserID: userID,
		Role:   role,
	})

	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return s, nil
}

// Parse validates tokenString and returns its claims.
func (m *TokenMinter) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
