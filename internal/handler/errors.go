package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/service"
)

// writeError renders err as {"error": code, "message": msg}.
func writeError(c echo.Context, err error) error {
	se := service.AsError(err)
	if se.Status() == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(se.Status(), echo.Map{"error": se.Code, "message": se.Message})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
