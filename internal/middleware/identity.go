package middleware

// identity.go holds the helpers that move the authenticated principal
// between the gate, the authorization middleware and the handlers.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/logging"
)

const principalKey = "principal"

func setPrincipal(c echo.Context, p *Principal) {
	c.Set(principalKey, p)
	req := c.Request()
	entry := logging.FromContext(req.Context()).WithField("user_id", p.User.ID)
	c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), entry)))
}

// PrincipalFrom returns the caller set by the gate, if any.
func PrincipalFrom(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(principalKey).(*Principal)
	return p, ok && p != nil
}

// userID identifies the caller for rate limiting; "anon" when unauthenticated.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.User.ID, 10)
	}
	return "anon"
}
