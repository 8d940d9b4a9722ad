package middlewares

import (
	"fmt"
	"time"
	"tourbook/src/config"
	"tourbook/src/models"
	"tourbook/src/types"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "tourbook"

// IssueToken signs a token AuthMiddleware accepts. Login lives in the
// identity service; this is used by the CLI and tests.
func IssueToken(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret()))
}
