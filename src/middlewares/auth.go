package middlewares

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"tourbook/src/config"
	"tourbook/src/db"
	"tourbook/src/lib"
	"tourbook/src/repository"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the bearer token and loads the user behind it.
// The user's id and role are set on the context as "id" and "role".
func AuthMiddleware(ctx *gin.Context) {
	reqToken, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(reqToken) == "" {
		unauthorized(ctx, types.Unauthorized("missing bearer token"))
		return
	}

	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(config.JWTSecret()), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		lib.GetLogger().Debugf("token error: %s", err.Error())
		unauthorized(ctx, &types.AppError{Kind: types.ERR_UNAUTHORIZED, Message: "invalid token", Err: err})
		return
	}

	uid := claims.UserID
	if uid == 0 {
		parsed, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			unauthorized(ctx, types.Unauthorized("invalid token subject"))
			return
		}
		uid = uint(parsed)
	}

	user, err := repository.NewUserRepository(db.GetDb()).FindByID(ctx.Request.Context(), uid)
	if errors.Is(err, repository.ErrNotFound) {
		unauthorized(ctx, types.Unauthorized("user no longer exists"))
		return
	}
	if err != nil {
		unauthorized(ctx, types.Internal("failed to load user", err))
		return
	}

	ctx.Set("id", user.ID)
	ctx.Set("email", user.Email)
	ctx.Set("role", string(user.Role))
}

func unauthorized(ctx *gin.Context, err error) {
	ctx.Error(err)
	ctx.Abort()
}

// RequireRoles lets the request through only when the authenticated user
// holds one of roles.
func RequireRoles(roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := types.Role(ctx.GetString("role"))
		if !slices.Contains(roles, role) {
			ctx.Error(types.Forbidden("insufficient permissions"))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func Requester(ctx *gin.Context) types.Requester {
	return types.Requester{ID: ctx.GetUint("id"), Role: types.Role(ctx.GetString("role"))}
}
