package service

import (
	"context"

	"github.com/gecilind/University-Management-System/internal/model"
)

// ProfileStore reports which profile rows reference an identity.
type ProfileStore interface {
	Profiles(ctx context.Context, userID uint64) (model.Profiles, error)
}

// RoleResolver derives the single effective role of an identity.
type RoleResolver struct {
	Profiles ProfileStore
}

func NewRoleResolver(p ProfileStore) *RoleResolver { return &RoleResolver{Profiles: p} }

func (r *RoleResolver) Resolve(ctx context.Context, user model.User) (model.Role, error) {
	p, err := r.Profiles.Profiles(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return RoleFromProfiles(p), nil
}

// RoleFromProfiles applies the priority administrator > professor > student.
func RoleFromProfiles(p model.Profiles) model.Role {
	switch {
	case p.Administrator:
		return model.RoleAdmin
	case p.Professor:
		return model.RoleProfessor
	case p.Student:
		return model.RoleStudent
	default:
		return model.RoleUser
	}
}
