package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gecilind/University-Management-System/internal/logging"
	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/repository"
	"github.com/gecilind/University-Management-System/internal/service"
	"github.com/gecilind/University-Management-System/internal/utils"
)

// State is the result class of an authentication attempt.
type State int

const (
	// Anonymous: no credentials on a path that allows anonymous access.
	Anonymous State = iota
	// Unauthenticated: no credentials on a protected path.
	Unauthenticated
	// Failed: credentials were presented and rejected.
	Failed
	Authenticated
)

// Reason qualifies a Failed outcome.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMalformedHeader
	ReasonInvalidToken
	ReasonExpired
	ReasonUnknownOrInactiveSubject
	ReasonInternal
)

// Code is the machine readable error code written to clients.
func (r Reason) Code() string {
	switch r {
	case ReasonMalformedHeader:
		return "invalid_authorization_header"
	case ReasonInvalidToken:
		return "invalid_token"
	case ReasonExpired:
		return "token_expired"
	case ReasonUnknownOrInactiveSubject:
		return "user_not_found_or_inactive"
	case ReasonInternal:
		return "internal_error"
	default:
		return ""
	}
}

func (r Reason) message() string {
	switch r {
	case ReasonMalformedHeader:
		return "Invalid authorization header format"
	case ReasonInvalidToken:
		return "Invalid token"
	case ReasonExpired:
		return "Token has expired"
	case ReasonUnknownOrInactiveSubject:
		return "User not found or inactive"
	default:
		return "internal server error"
	}
}

// Principal is the authenticated caller. Role is resolved from the
// database on every request, not read from the token.
type Principal struct {
	User   model.User
	Role   model.Role
	Claims *utils.AccessClaims
	// Token is the bearer token as presented.
	Token string
}

type Outcome struct {
	State     State
	Principal *Principal
	Reason    Reason
	Err       error
}

// DefaultPublicPaths are reachable without credentials.
var DefaultPublicPaths = []string{"/api/login", "/api/logout", "/api/renew"}

// Gate turns an Authorization header into an Outcome.
type Gate struct {
	Codec  *utils.TokenCodec
	Users  service.IdentityStore
	Roles  *service.RoleResolver
	Public []string

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func NewGate(codec *utils.TokenCodec, users service.UserStore) *Gate {
	return &Gate{
		Codec:  codec,
		Users:  users,
		Roles:  service.NewRoleResolver(users),
		Public: DefaultPublicPaths,
	}
}

func (g *Gate) isPublic(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range g.Public {
		if strings.HasSuffix(path, strings.TrimSuffix(p, "/")) {
			return true
		}
	}
	return false
}

// Authenticate classifies a request. It never returns an error: storage
// failures become Failed(ReasonInternal).
func (g *Gate) Authenticate(ctx context.Context, path, header string, now time.Time) Outcome {
	if header == "" {
		if g.isPublic(path) {
			return Outcome{State: Anonymous}
		}
		return Outcome{State: Unauthenticated}
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return Outcome{State: Failed, Reason: ReasonMalformedHeader}
	}

	claims, err := g.Codec.Verify(parts[1], now)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return Outcome{State: Failed, Reason: ReasonExpired, Err: err}
	case err != nil:
		return Outcome{State: Failed, Reason: ReasonInvalidToken, Err: err}
	}

	u, err := g.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		return Outcome{State: Failed, Reason: ReasonUnknownOrInactiveSubject, Err: err}
	}
	if err != nil {
		return Outcome{State: Failed, Reason: ReasonInternal, Err: err}
	}
	role, err := g.Roles.Resolve(ctx, u)
	if err != nil {
		return Outcome{State: Failed, Reason: ReasonInternal, Err: err}
	}
	return Outcome{State: Authenticated, Principal: &Principal{User: u, Role: role, Claims: claims, Token: parts[1]}}
}

// Middleware adapts the gate to Echo. Authenticated requests carry the
// principal; rejected ones get a 401 with WWW-Authenticate.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			now := time.Now()
			if g.Now != nil {
				now = g.Now()
			}
			out := g.Authenticate(req.Context(), req.URL.Path, req.Header.Get(echo.HeaderAuthorization), now)

			switch out.State {
			case Anonymous:
				return next(c)
			case Authenticated:
				setPrincipal(c, out.Principal)
				return next(c)
			case Unauthenticated:
				return unauthorized(c, "not_authenticated", "Authentication credentials were not provided")
			}

			log := logging.FromContext(req.Context()).WithField("reason", out.Reason.Code())
			if out.Reason == ReasonInternal {
				log.WithError(out.Err).Error("authentication failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": out.Reason.Code(), "message": out.Reason.message()})
			}
			log.Debug("authentication failed")
			return unauthorized(c, out.Reason.Code(), out.Reason.message())
		}
	}
}

func unauthorized(c echo.Context, code, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": code, "message": msg})
}
