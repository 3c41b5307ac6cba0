package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VisitorTokenTTL is how long an anonymous visitor keeps the same identity.
const VisitorTokenTTL = 30 * 24 * time.Hour

// Claims identify an anonymous storefront visitor.
type Claims struct {
	VisitorID string `json:"visitor_id"`
	jwt.RegisteredClaims
}

// GenerateVisitorJWT signs a token for visitorID.
func GenerateVisitorJWT(secret []byte, visitorID string, now time.Time) (string, error) {
	claims := &Claims{
		VisitorID: visitorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(VisitorTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "storefeed-api",
			Subject:   visitorID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateVisitorJWT parses and validates a visitor token.
func ValidateVisitorJWT(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.VisitorID == "" {
		return nil, fmt.Errorf("token has no visitor id")
	}

	return claims, nil
}
