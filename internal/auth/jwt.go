package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

// Claims defines the structure of the JWT claims for admin sessions.
type Claims struct {
	AdminID string           `json:"admin_id"`
	Email   string           `json:"email"`
	Role    models.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new session token for an admin.
func GenerateJWT(adminID utils.UID, email string, role models.AdminRole, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID: adminID.String(),
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   adminID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}
	return claims, nil
}
