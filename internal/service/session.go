package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gecilind/University-Management-System/internal/logging"
	"github.com/gecilind/University-Management-System/internal/model"
	q "github.com/gecilind/University-Management-System/internal/queue"
	"github.com/gecilind/University-Management-System/internal/repository"
	"github.com/gecilind/University-Management-System/internal/utils"
)

// RefreshStore persists refresh tokens. Lookup returns
// repository.ErrNotFound for unknown tokens.
type RefreshStore interface {
	Create(ctx context.Context, userID uint64, now time.Time) (utils.RefreshToken, error)
	Lookup(ctx context.Context, raw string) (model.RefreshToken, error)
	Delete(ctx context.Context, raw string) error
	DeleteByID(ctx context.Context, id uint64) error
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
}

// SessionService implements login, renewal and logout.
type SessionService struct {
	Credentials *CredentialVerifier
	Roles       *RoleResolver
	Users       IdentityStore
	Codec       *utils.TokenCodec
	Tokens      RefreshStore
	Events      EventPublisher

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// UserStore is what SessionService needs from the identity repository.
type UserStore interface {
	IdentityStore
	ProfileStore
}

func NewSessionService(users UserStore, tokens RefreshStore, codec *utils.TokenCodec, events EventPublisher) *SessionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SessionService{
		Credentials: NewCredentialVerifier(users),
		Roles:       NewRoleResolver(users),
		Users:       users,
		Codec:       codec,
		Tokens:      tokens,
		Events:      events,
	}
}

type LoginResult struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
	User    model.User
	Role    model.Role
}

type RenewResult struct {
	Access utils.AccessToken
	User   model.User
	Role   model.Role
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login verifies credentials and starts a session. Nothing is persisted
// unless every step succeeds.
func (s *SessionService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	log := logging.FromContext(ctx).WithField("username", username)
	now := s.now()

	u, err := s.Credentials.Verify(ctx, username, password)
	switch {
	case errors.Is(err, ErrUserNotFound):
		log.Info("login rejected: unknown username")
		s.emitFailure(ctx, q.EventLoginFailed, 0, username, CodeUserNotFound, now)
		return LoginResult{}, newError(KindNotFound, CodeUserNotFound, "User not found", err)
	case errors.Is(err, ErrBadPassword), errors.Is(err, ErrInactive):
		log.WithField("cause", err.Error()).Info("login rejected")
		s.emitFailure(ctx, q.EventLoginFailed, 0, username, CodeInvalidCredentials, now)
		return LoginResult{}, newError(KindUnauthenticated, CodeInvalidCredentials, "Invalid credentials", err)
	case err != nil:
		log.WithError(err).Error("login: identity lookup failed")
		return LoginResult{}, internal(err)
	}

	role, err := s.Roles.Resolve(ctx, u)
	if err != nil {
		log.WithError(err).Error("login: role resolution failed")
		return LoginResult{}, internal(err)
	}
	access, err := s.Codec.Issue(u, role, now)
	if err != nil {
		log.WithError(err).Error("login: sign access token failed")
		return LoginResult{}, internal(err)
	}
	refresh, err := s.Tokens.Create(ctx, u.ID, now)
	if err != nil {
		log.WithError(err).Error("login: store refresh token failed")
		return LoginResult{}, internal(err)
	}

	log.WithFields(logrus.Fields{"user_id": u.ID, "role": role}).Info("login succeeded")
	ev := newEvent(q.EventLogin, now)
	ev.UserID, ev.Username, ev.Role = u.ID, u.Username, role.String()
	s.emit(ctx, ev)

	return LoginResult{Access: access, Refresh: refresh, User: u, Role: role}, nil
}

// Renew exchanges a refresh token for a new access token carrying the
// owner's current role. The refresh token itself is left untouched.
func (s *SessionService) Renew(ctx context.Context, raw string) (RenewResult, error) {
	log := logging.FromContext(ctx)
	now := s.now()

	if raw == "" {
		return RenewResult{}, newError(KindUnauthenticated, CodeMissingRefreshToken, "Missing refresh token", nil)
	}

	rec, err := s.Tokens.Lookup(ctx, raw)
	if errors.Is(err, repository.ErrNotFound) {
		s.emitFailure(ctx, q.EventRenewFailed, 0, "", CodeInvalidRefreshToken, now)
		return RenewResult{}, newError(KindUnauthenticated, CodeInvalidRefreshToken, "Invalid refresh token", err)
	}
	if err != nil {
		log.WithError(err).Error("renew: lookup failed")
		return RenewResult{}, internal(err)
	}
	log = log.WithField("user_id", rec.UserID)

	if rec.Expired(now) {
		if err := s.Tokens.DeleteByID(ctx, rec.ID); err != nil {
			log.WithError(err).Warn("renew: delete expired refresh token failed")
		}
		s.emitFailure(ctx, q.EventRenewFailed, rec.UserID, "", CodeRefreshTokenExpired, now)
		return RenewResult{}, newError(KindUnauthenticated, CodeRefreshTokenExpired, "Refresh token expired", nil)
	}

	u, err := s.Users.GetByID(ctx, rec.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return RenewResult{}, newError(KindUnauthenticated, CodeInvalidRefreshToken, "Invalid refresh token", err)
	}
	if err != nil {
		log.WithError(err).Error("renew: load owner failed")
		return RenewResult{}, internal(err)
	}
	if !u.IsActive {
		s.emitFailure(ctx, q.EventRenewFailed, u.ID, u.Username, CodeUserInactive, now)
		return RenewResult{}, newError(KindUnauthenticated, CodeUserInactive, "User is inactive", nil)
	}

	role, err := s.Roles.Resolve(ctx, u)
	if err != nil {
		log.WithError(err).Error("renew: role resolution failed")
		return RenewResult{}, internal(err)
	}
	access, err := s.Codec.Issue(u, role, now)
	if err != nil {
		log.WithError(err).Error("renew: sign access token failed")
		return RenewResult{}, internal(err)
	}

	ev := newEvent(q.EventRenew, now)
	ev.UserID, ev.Username, ev.Role = u.ID, u.Username, role.String()
	s.emit(ctx, ev)

	return RenewResult{Access: access, User: u, Role: role}, nil
}

// Logout deletes the refresh token if one is presented. It never fails:
// storage errors are logged and the client is still told it is logged out.
func (s *SessionService) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	if err := s.Tokens.Delete(ctx, raw); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("logout: delete refresh token failed")
		return
	}
	s.emit(ctx, newEvent(q.EventLogout, s.now()))
}

// LogoutAll deletes every refresh token owned by userID and reports how
// many were removed.
func (s *SessionService) LogoutAll(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.Tokens.DeleteByUser(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("user_id", userID).Error("logout-all failed")
		return 0, internal(err)
	}
	ev := newEvent(q.EventLogoutAll, s.now())
	ev.UserID, ev.Count = userID, n
	s.emit(ctx, ev)
	return n, nil
}

func (s *SessionService) emitFailure(ctx context.Context, typ string, userID uint64, username, reason string, now time.Time) {
	ev := newEvent(typ, now)
	ev.UserID, ev.Username, ev.Reason = userID, username, reason
	s.emit(ctx, ev)
}

func (s *SessionService) emit(ctx context.Context, ev q.SessionEvent) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, ev); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("event", ev.Type).Warn("publish session event failed")
	}
}
