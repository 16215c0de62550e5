package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType represents the type of JWT token
type TokenType string

const ShareToken TokenType = "share"

var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims
type Claims struct {
	Key       string    `json:"key"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateShareToken signs a download token for one shared object key.
func GenerateShareToken(key string, secret string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Key:       key,
		TokenType: ShareToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if duration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(duration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// ValidateShareToken checks that tokenString is a valid share token for key.
func ValidateShareToken(tokenString, secret, key string) error {
	claims, err := ValidateToken(tokenString, secret)
	if err != nil {
		return err
	}
	if claims.TokenType != ShareToken || claims.Key != key {
		return ErrInvalidToken
	}
	return nil
}
