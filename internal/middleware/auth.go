package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/larderhq/larder/internal/config"
	"github.com/larderhq/larder/internal/models"
)

// JWTClaims represents the claims in our JWT token. The household claim is
// the tenancy root: requests without one never reach a handler.
type JWTClaims struct {
	UserID      int    `json:"user_id"`
	HouseholdID int    `json:"household_id"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// AuthRequired middleware checks for a valid JWT token and stores the tenant
// context in locals.
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization format",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token claims",
			})
		}

		tenant := models.Tenant{UserID: claims.UserID, HouseholdID: claims.HouseholdID}
		if !tenant.Valid() {
			// A token without a household cannot be scoped to anything.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "no household associated with account",
			})
		}

		c.Locals("tenant", tenant)
		c.Locals("user_email", claims.Email)

		return c.Next()
	}
}

// GetTenant extracts the tenant context from the request. The zero value is
// returned when auth middleware did not run; callers must check Valid().
func GetTenant(c *fiber.Ctx) models.Tenant {
	if t, ok := c.Locals("tenant").(models.Tenant); ok {
		return t
	}
	return models.Tenant{}
}
