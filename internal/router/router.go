package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gecilind/University-Management-System/internal/handler"
	"github.com/gecilind/University-Management-System/internal/middleware"
	"github.com/gecilind/University-Management-System/internal/model"
)

// New returns an Echo instance with the common middleware installed.
// Trailing slashes are stripped before routing so "/api/login/" and
// "/api/login" are the same route.
func New(log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// API creates the /api group. Every request under it passes the gate;
// only login, logout and renew accept anonymous callers.
func API(e *echo.Echo, gate *middleware.Gate) *echo.Group {
	return e.Group("/api", gate.Middleware())
}

// RegisterAuth registers the session endpoints. limit guards the credential
// endpoints; pass nil to disable it.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	var guarded []echo.MiddlewareFunc
	if limit != nil {
		guarded = append(guarded, limit)
	}
	api.POST("/login", a.Login, guarded...)
	api.POST("/renew", a.Renew, guarded...)
	api.POST("/logout", a.Logout)

	api.POST("/logout-all", a.LogoutAll, middleware.RequireAuthenticated())
	api.GET("/me", a.Me, middleware.RequireAuthenticated())
}

// RegisterDashboards registers the role-gated landing pages.
func RegisterDashboards(api *echo.Group) {
	api.GET("/admin-dashboard", handler.Dashboard("admin"), middleware.RequireRole(model.RoleAdmin))
	api.GET("/professor-dashboard", handler.Dashboard("professor"), middleware.RequireRole(model.RoleProfessor))
	api.GET("/student-dashboard", handler.Dashboard("student"), middleware.RequireRole(model.RoleStudent))
}
