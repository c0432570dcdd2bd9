package utils

import (
	"errors"
	"fmt"
	"time"

	"pawpost-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "pawpost-backend"

var ErrInvalidSubject = errors.New("token subject is not a user id")

// Claims defines the structure of our JWT claims.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Subject returns the authenticated user id carried by the token.
func (c *Claims) Subject() (uuid.UUID, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return id, nil
}

// GenerateJWT issues a signed HS256 token for userID valid for TOKEN_HOURS.
func GenerateJWT(userID uuid.UUID) (string, error) {
	if config.Cfg == nil || config.Cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	if config.Cfg.TokenMaxAge <= 0 {
		return "", fmt.Errorf("token max age is not configured or invalid")
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.Cfg.TokenMaxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(config.Cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateJWT parses tokenString and returns its claims if the signature, issuer and lifetime check out.
func ValidateJWT(tokenString string) (*Claims, error) {
	if config.Cfg == nil || config.Cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is not configured for validation")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse or validate token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}
