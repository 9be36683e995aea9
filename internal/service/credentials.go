package service

import (
	"context"
	"errors"

	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/repository"
	"github.com/gecilind/University-Management-System/internal/utils"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrBadPassword  = errors.New("bad password")
	ErrInactive     = errors.New("user is inactive")
)

// IdentityStore looks identities up. Implementations return
// repository.ErrNotFound when no row matches.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CredentialVerifier checks a username/password pair against the stored
// bcrypt hash.
type CredentialVerifier struct {
	Users IdentityStore
	// Cost is the bcrypt cost stored hashes use; the comparison made for a
	// missing username runs at the same cost. Zero means bcrypt.DefaultCost.
	Cost int
}

func NewCredentialVerifier(users IdentityStore) *CredentialVerifier {
	return &CredentialVerifier{Users: users}
}

// Verify returns the identity when password matches and the account is
// active. A missing username still costs one bcrypt comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (model.User, error) {
	u, err := v.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPassword(password, v.Cost)
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrBadPassword
	}
	if !u.IsActive {
		return model.User{}, ErrInactive
	}
	return u, nil
}
