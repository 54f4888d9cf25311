package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/kanrihq/kanri-backend/internal/apperr"
)

// RequireAuthenticated rejects requests whose context holds no principal.
// It assumes Authenticate ran earlier in the chain.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Get(principalKey) == nil {
				return apperr.ErrUnauthorized
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the authenticated principal holds one of the
// given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(roleKey).(string)
			if !ok {
				return apperr.ErrUnauthorized
			}
			if !allowed[role] {
				return apperr.ErrRoleAccessDenied
			}
			return next(c)
		}
	}
}
