package types

import "github.com/golang-jwt/jwt/v5"

type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
