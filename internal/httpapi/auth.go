package httpapi

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"

	"github.com/anatolykoptev/go_jobboard/internal/session"
)

const localIdentity = "identity"

// Claims are the claims of a token issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// NewAuthMiddleware resolves the request identity from an optional bearer
// token (HS256). Requests without a token are anonymous; an invalid token is
// rejected. With an empty secret tokens are forwarded unverified and the
// backend remains the only judge of them.
func NewAuthMiddleware(secret, expectedIssuer string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		tokenStr := utils.CopyString(bearerToken(c.Get("Authorization")))
		if tokenStr == "" {
			c.Locals(localIdentity, session.Identity{})
			return c.Next()
		}
		if secret == "" {
			c.Locals(localIdentity, session.Identity{Token: tokenStr})
			return c.Next()
		}

		token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return secretBytes, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			return writeError(c, http.StatusUnauthorized, "", "invalid or expired token")
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return writeError(c, http.StatusUnauthorized, "", "invalid token claims")
		}
		if expectedIssuer != "" && claims.Issuer != expectedIssuer {
			return writeError(c, http.StatusUnauthorized, "", "invalid token issuer")
		}
		c.Locals(localIdentity, session.Identity{Token: tokenStr, UserID: claims.Subject, Role: claims.Role})
		return c.Next()
	}
}

// bearerToken accepts "Bearer <token>" or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

func identityOf(c *fiber.Ctx) session.Identity {
	id, _ := c.Locals(localIdentity).(session.Identity)
	return id
}
