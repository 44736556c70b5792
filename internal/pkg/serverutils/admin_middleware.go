package serverutils

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const AdminRole = "admin"

// AdminMiddleware accepts `Authorization: Bearer <token>` where token is
// either the static admin token or an HS256 JWT carrying role=admin.
func AdminMiddleware(adminToken, jwtSecret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) <= len("Bearer ") {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing or invalid authorization header"))
		}
		tokenStr := authHeader[len("Bearer "):]

		if sub, ok := AuthorizeAdmin(tokenStr, adminToken, jwtSecret); ok {
			ctx.Locals("admin_subject", sub)
			return ctx.Next()
		}
		return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Invalid admin token"))
	}
}

// AuthorizeAdmin reports whether tokenStr grants admin access and returns
// the subject it was granted to.
func AuthorizeAdmin(tokenStr, adminToken, jwtSecret string) (string, bool) {
	if tokenStr == "" {
		return "", false
	}
	if adminToken != "" && subtle.ConstantTimeCompare([]byte(tokenStr), []byte(adminToken)) == 1 {
		return "token", true
	}
	if jwtSecret != "" {
		return adminClaims(tokenStr, jwtSecret)
	}
	return "", false
}

func adminClaims(tokenStr, secret string) (string, bool) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if role, _ := claims["role"].(string); role != AdminRole {
		return "", false
	}
	sub, _ := claims["sub"].(string)
	return sub, true
}
