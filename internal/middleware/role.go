package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/model"
)

// RequireRole lets the request through only when the gate authenticated a
// principal whose role is one of roles. A missing principal is a 401,
// never a 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return unauthorized(c, "not_authenticated", "Authentication credentials were not provided")
			}
			if len(allowed) > 0 && !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":   "forbidden",
					"message": "You do not have permission to perform this action.",
				})
			}
			return next(c)
		}
	}
}

// RequireAuthenticated accepts any authenticated principal.
func RequireAuthenticated() echo.MiddlewareFunc { return RequireRole() }
