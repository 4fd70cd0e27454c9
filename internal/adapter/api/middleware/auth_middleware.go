package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenVerifier resolves an ID token to the uid it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		return m.authenticate(c, parts[1], next)
	}
}

// AuthenticateQuery accepts the token from the `token` query parameter as
// well. Browsers cannot set headers on WebSocket upgrades.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	header := m.Authenticate(next)
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return header(c)
		}
		return m.authenticate(c, token, next)
	}
}

func (m *AuthMiddleware) authenticate(c echo.Context, idToken string, next echo.HandlerFunc) error {
	uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
	if err != nil || uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	c.Set("uid", uid)
	return next(c)
}

func (m *AuthMiddleware) GetUIDFromToken(ctx context.Context, token string) (string, error) {
	return m.verifier.VerifyToken(ctx, token)
}
