package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/middleware"
	"github.com/gecilind/University-Management-System/internal/service"
)

// AuthHandler serves the session endpoints and moves tokens in and out of
// cookies.
type AuthHandler struct {
	Sessions   *service.SessionService
	Cookies    CookieOptions
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewAuthHandler(s *service.SessionService, cookies CookieOptions, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{Sessions: s, Cookies: cookies, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}

type loginResp struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

type renewResp struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// Login: verify credentials, return the access token and set both cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(h.Cookies.CreateCookie(AccessCookie, res.Access.Token, h.AccessTTL, false))
	c.SetCookie(h.Cookies.CreateCookie(RefreshCookie, res.Refresh.Raw, h.RefreshTTL, true))
	return c.JSON(http.StatusOK, loginResp{
		Message:     "Login successful",
		AccessToken: res.Access.Token,
		UserID:      res.User.ID,
		Username:    res.User.Username,
		Email:       res.User.Email,
		Role:        res.Role.String(),
	})
}

// Renew: exchange the refresh cookie for a new access token. The refresh
// cookie is left as is.
func (h *AuthHandler) Renew(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Sessions.Renew(ctx, refreshFromCookie(c))
	if err != nil {
		return writeError(c, err)
	}
	c.SetCookie(h.Cookies.CreateCookie(AccessCookie, res.Access.Token, h.AccessTTL, false))
	return c.JSON(http.StatusOK, renewResp{Message: "Token renewed", AccessToken: res.Access.Token})
}

// Logout: delete the presented refresh token and clear both cookies. Always 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	h.Sessions.Logout(ctx, refreshFromCookie(c))
	c.SetCookie(h.Cookies.DeleteCookie(AccessCookie))
	c.SetCookie(h.Cookies.DeleteCookie(RefreshCookie))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// LogoutAll: revoke every refresh token of the caller (protected).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not_authenticated", "message": "Authentication credentials were not provided"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Sessions.LogoutAll(ctx, p.User.ID)
	if err != nil {
		return writeError(c, err)
	}
	c.SetCookie(h.Cookies.DeleteCookie(AccessCookie))
	c.SetCookie(h.Cookies.DeleteCookie(RefreshCookie))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out everywhere", "revoked": n})
}

// Me: identity summary of the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not_authenticated", "message": "Authentication credentials were not provided"})
	}
	return c.JSON(http.StatusOK, summarize(p))
}

func refreshFromCookie(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

type identitySummary struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func summarize(p *middleware.Principal) identitySummary {
	return identitySummary{UserID: p.User.ID, Username: p.User.Username, Email: p.User.Email, Role: p.Role.String()}
}
