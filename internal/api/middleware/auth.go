package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// AuthenticatedUser is the identity extracted from a validated bearer token.
type AuthenticatedUser struct {
	Address string
	Role    string
}

// Claims is the JWT claim set issued by the platform.
type Claims struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Secret is the HS256 signing secret shared with the token issuer.
	Secret string
	// RequireAdmin rejects tokens whose role claim is not "admin".
	RequireAdmin bool
}

// AuthMiddleware returns a Fiber middleware for Bearer token authentication.
func AuthMiddleware(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		if token == "" {
			c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid Bearer token",
			})
		}

		user, err := validateToken(token, cfg.Secret)
		if err != nil {
			c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Invalid token",
				"details": err.Error(),
			})
		}

		if cfg.RequireAdmin && user.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin role required",
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

func validateToken(token, secret string) (*AuthenticatedUser, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Address == "" {
		return nil, fmt.Errorf("token has no address claim")
	}
	return &AuthenticatedUser{Address: claims.Address, Role: claims.Role}, nil
}

// GetAuthenticatedUser retrieves the authenticated user from Fiber context.
// Returns nil if no user is found.
func GetAuthenticatedUser(c *fiber.Ctx) *AuthenticatedUser {
	user, _ := c.Locals("user").(*AuthenticatedUser)
	return user
}
