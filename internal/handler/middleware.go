package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

// userContextKey is where RequireAuth stores the authenticated identity in
// the echo context.
const userContextKey = "auth.user"

// RequireAuth verifies the Bearer token and stores the identity it carries
// for downstream handlers.
func (h *Handler) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return respondError(c, http.StatusUnauthorized, "missing bearer token")
		}

		u, err := h.tokens.Parse(tokenStr)
		if err != nil {
			return respondError(c, http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userContextKey, u)
		return next(c)
	}
}

// RequireRole rejects authenticated users whose role is not in roles. Must
// run after RequireAuth.
func (h *Handler) RequireRole(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := user.RequireRole(currentUser(c), roles...); err != nil {
				return respondError(c, http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// currentUser returns the identity stored by RequireAuth, or nil on public
// routes.
func currentUser(c echo.Context) *user.User {
	u, _ := c.Get(userContextKey).(*user.User)
	return u
}
