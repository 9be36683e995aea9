package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/repository"
	"github.com/gecilind/University-Management-System/internal/utils"
)

type stubUsers struct {
	users    map[uint64]model.User
	profiles map[uint64]model.Profiles
	err      error
}

func (s *stubUsers) GetByUsername(context.Context, string) (model.User, error) {
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if s.err != nil {
		return model.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) Profiles(_ context.Context, id uint64) (model.Profiles, error) {
	return s.profiles[id], nil
}

var gateNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestGate() (*Gate, *stubUsers) {
	users := &stubUsers{
		users: map[uint64]model.User{
			1: {ID: 1, Username: "root", IsActive: true},
			2: {ID: 2, Username: "prof", IsActive: true},
			3: {ID: 3, Username: "stud", IsActive: true},
			4: {ID: 4, Username: "left", IsActive: false},
		},
		profiles: map[uint64]model.Profiles{
			1: {Administrator: true},
			2: {Professor: true},
			3: {Student: true},
		},
	}
	g := NewGate(utils.NewTokenCodec("gate-secret", 15*time.Minute), users)
	g.Now = func() time.Time { return gateNow }
	return g, users
}

func bearer(t *testing.T, g *Gate, u model.User, role model.Role, at time.Time) string {
	t.Helper()
	tok, err := g.Codec.Issue(u, role, at)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestGate_Authenticate(t *testing.T) {
	g, users := newTestGate()
	valid := bearer(t, g, users.users[2], model.RoleProfessor, gateNow)
	expired := bearer(t, g, users.users[2], model.RoleProfessor, gateNow.Add(-time.Hour))
	inactive := bearer(t, g, users.users[4], model.RoleUser, gateNow)
	ghost := bearer(t, g, model.User{ID: 99}, model.RoleUser, gateNow)
	foreign, err := utils.NewTokenCodec("other", time.Minute).Issue(users.users[1], model.RoleAdmin, gateNow)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		state  State
		reason Reason
	}{
		{"login without header", "/api/login", "", Anonymous, ReasonNone},
		{"renew with trailing slash", "/api/renew/", "", Anonymous, ReasonNone},
		{"logout without header", "/api/logout", "", Anonymous, ReasonNone},
		{"protected without header", "/api/admin-dashboard", "", Unauthenticated, ReasonNone},
		{"lookalike path is protected", "/api/login-history", "", Unauthenticated, ReasonNone},
		{"basic scheme", "/api/me", "Basic abc", Failed, ReasonMalformedHeader},
		{"bearer without token", "/api/me", "Bearer", Failed, ReasonMalformedHeader},
		{"bearer with extra part", "/api/me", "Bearer a b", Failed, ReasonMalformedHeader},
		{"lowercase scheme", "/api/me", "bearer x", Failed, ReasonMalformedHeader},
		{"header checked on public path", "/api/login", "Token x", Failed, ReasonMalformedHeader},
		{"garbage token", "/api/me", "Bearer not.a.jwt", Failed, ReasonInvalidToken},
		{"foreign signature", "/api/me", "Bearer " + foreign.Token, Failed, ReasonInvalidToken},
		{"expired", "/api/me", expired, Failed, ReasonExpired},
		{"inactive subject", "/api/me", inactive, Failed, ReasonUnknownOrInactiveSubject},
		{"unknown subject", "/api/me", ghost, Failed, ReasonUnknownOrInactiveSubject},
		{"valid", "/api/me", valid, Authenticated, ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := g.Authenticate(context.Background(), tt.path, tt.header, gateNow)
			assert.Equal(t, tt.state, out.State)
			assert.Equal(t, tt.reason, out.Reason)
			if tt.state == Authenticated {
				require.NotNil(t, out.Principal)
				assert.Equal(t, model.RoleProfessor, out.Principal.Role)
				assert.Equal(t, uint64(2), out.Principal.User.ID)
				assert.Equal(t, "Bearer "+out.Principal.Token, tt.header, "presented token is kept verbatim")
			} else {
				assert.Nil(t, out.Principal)
			}
		})
	}
}

func TestGate_RoleIsResolvedLive(t *testing.T) {
	g, users := newTestGate()
	h := bearer(t, g, users.users[3], model.RoleStudent, gateNow)
	users.profiles[3] = model.Profiles{Student: true, Professor: true}

	out := g.Authenticate(context.Background(), "/api/me", h, gateNow)
	require.Equal(t, Authenticated, out.State)
	assert.Equal(t, model.RoleProfessor, out.Principal.Role)
}

func TestGate_StoreFailureIsClassified(t *testing.T) {
	g, users := newTestGate()
	h := bearer(t, g, users.users[1], model.RoleAdmin, gateNow)
	users.err = errors.New("db down")

	out := g.Authenticate(context.Background(), "/api/me", h, gateNow)
	assert.Equal(t, Failed, out.State)
	assert.Equal(t, ReasonInternal, out.Reason)
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newGatedEcho(g *Gate) *echo.Echo {
	e := echo.New()
	api := e.Group("/api", g.Middleware())
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	api.POST("/login", ok)
	api.GET("/me", ok, RequireAuthenticated())
	api.GET("/admin-dashboard", ok, RequireRole(model.RoleAdmin))
	api.GET("/professor-dashboard", ok, RequireRole(model.RoleProfessor))
	api.GET("/staff", ok, RequireRole(model.RoleAdmin, model.RoleProfessor))
	return e
}

func TestGateMiddleware_NeverForbidsMissingCredentials(t *testing.T) {
	g, _ := newTestGate()
	e := newGatedEcho(g)

	for _, path := range []string{"/api/me", "/api/admin-dashboard", "/api/professor-dashboard", "/api/staff"} {
		rec := serve(e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate), path)
		assert.Equal(t, "not_authenticated", decode(t, rec)["error"], path)
	}
}

func TestGateMiddleware_Responses(t *testing.T) {
	g, users := newTestGate()
	e := newGatedEcho(g)
	admin := bearer(t, g, users.users[1], model.RoleAdmin, gateNow)
	prof := bearer(t, g, users.users[2], model.RoleProfessor, gateNow)
	stud := bearer(t, g, users.users[3], model.RoleStudent, gateNow)
	expired := bearer(t, g, users.users[1], model.RoleAdmin, gateNow.Add(-time.Hour))

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		status int
		code   string
	}{
		{"anonymous login", http.MethodPost, "/api/login", "", http.StatusOK, ""},
		{"admin on admin dashboard", http.MethodGet, "/api/admin-dashboard", admin, http.StatusOK, ""},
		{"student on admin dashboard", http.MethodGet, "/api/admin-dashboard", stud, http.StatusForbidden, "forbidden"},
		{"professor on staff route", http.MethodGet, "/api/staff", prof, http.StatusOK, ""},
		{"student on staff route", http.MethodGet, "/api/staff", stud, http.StatusForbidden, "forbidden"},
		{"expired token", http.MethodGet, "/api/admin-dashboard", expired, http.StatusUnauthorized, "token_expired"},
		{"malformed header", http.MethodGet, "/api/me", "Token abc", http.StatusUnauthorized, "invalid_authorization_header"},
		{"any role on me", http.MethodGet, "/api/me", stud, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path, tt.auth)
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode(t, rec)["error"])
			}
		})
	}
}

func TestGateMiddleware_StoreFailureIs500(t *testing.T) {
	g, users := newTestGate()
	e := newGatedEcho(g)
	h := bearer(t, g, users.users[1], model.RoleAdmin, gateNow)
	users.err = errors.New("db down")

	rec := serve(e, http.MethodGet, "/api/me", h)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode(t, rec)["error"])
}
