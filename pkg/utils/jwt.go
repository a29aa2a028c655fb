package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/models"
)

var (
	jwtSecret          = []byte("change-me-in-production")
	jwtExpirationHours = 24
	jwtRememberDays    = 7
)

type Claims struct {
	UserID   uuid.UUID `json:"userID"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

func ConfigureJWT(secret string, expirationHours, rememberDays int) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if expirationHours > 0 {
		jwtExpirationHours = expirationHours
	}
	if rememberDays > 0 {
		jwtRememberDays = rememberDays
	}
}

// GenerateToken signs a session token for the user. With keepLoggedIn the
// token lives for the configured remember window instead of the standard
// session length.
func GenerateToken(user *models.User, keepLoggedIn bool) (string, error) {
	lifetime := time.Duration(jwtExpirationHours) * time.Hour
	if keepLoggedIn {
		lifetime = time.Duration(jwtRememberDays) * 24 * time.Hour
	}

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
