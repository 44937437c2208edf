package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// UserIDContextKey is the key used to store the authenticated user id in the Fiber context.
	UserIDContextKey = "userID"
)

// AuthMiddleware creates a middleware that validates bearer tokens.
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Not authorized, no token",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Not authorized, no token",
			})
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Not authorized, token failed",
			})
		}

		c.Locals(UserIDContextKey, userID)
		return c.Next()
	}
}

// currentUserID returns the user id stored by AuthMiddleware.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDContextKey).(string)
	return id
}
