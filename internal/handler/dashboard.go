package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/middleware"
)

type dashboardResp struct {
	Dashboard string          `json:"dashboard"`
	User      identitySummary `json:"user"`
}

// Dashboard returns a handler for a role-gated landing page. Route
// registration decides which roles reach it.
func Dashboard(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not_authenticated", "message": "Authentication credentials were not provided"})
		}
		return c.JSON(http.StatusOK, dashboardResp{Dashboard: name, User: summarize(p)})
	}
}
