package auth

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is the verified caller of a protected request. Anonymous
// sessions are real identities here: guest checkout issues anonymous
// tokens with a stable subject id.
type Identity struct {
	SubjectID   string
	Email       string
	IsAnonymous bool
}

// Middleware returns the JWT verification middleware for protected routes.
func Middleware(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing or invalid auth token",
			})
		},
	})
}

// FromCtx extracts the verified identity the middleware stored on the
// request. It fails when called on a route the middleware did not cover.
func FromCtx(c *fiber.Ctx) (Identity, error) {
	u := c.Locals("user")
	if u == nil {
		return Identity{}, fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return Identity{}, fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fiber.ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fiber.ErrUnauthorized
	}

	ident := Identity{SubjectID: sub}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if anon, ok := claims["is_anonymous"].(bool); ok {
		ident.IsAnonymous = anon
	}
	return ident, nil
}
