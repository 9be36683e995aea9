package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/utils"
)

// UserRepo reads identities and their profile ownership. Creating users
// and profiles belongs to the records side of the system; Create exists
// for seeding and tests.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,is_active,created_at,updated_at"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts an active user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	return createUser(ctx, r.DB, username, email, password, cost)
}

// CreateWithRole inserts an active user and the profile row for role in one
// transaction; on any failure neither row is kept.
func (r *UserRepo) CreateWithRole(ctx context.Context, username, email, password string, cost int, role model.Role) (uint64, error) {
	if _, ok := profileTables[role]; !ok && role != model.RoleUser {
		return 0, fmt.Errorf("unknown role %q", role)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	id, err := createUser(ctx, tx, username, email, password, cost)
	if err == nil {
		err = addProfile(ctx, tx, id, role)
	}
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func createUser(ctx context.Context, db execer, username, email, password string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, is_active) VALUES (?,?,?,1)",
		username, email, hash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username. Inactive users are
// returned too; the caller decides what inactivity means.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// Profiles reports which profile tables reference the user, in one round trip.
func (r *UserRepo) Profiles(ctx context.Context, userID uint64) (model.Profiles, error) {
	var p model.Profiles
	err := r.DB.QueryRowContext(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM administrators WHERE user_id=?),
			EXISTS(SELECT 1 FROM professors WHERE user_id=?),
			EXISTS(SELECT 1 FROM students WHERE user_id=?)`,
		userID, userID, userID).Scan(&p.Administrator, &p.Professor, &p.Student)
	return p, err
}

var profileTables = map[model.Role]string{
	model.RoleAdmin:     "administrators",
	model.RoleProfessor: "professors",
	model.RoleStudent:   "students",
}

// AddProfile attaches the profile row that gives userID the role. RoleUser
// needs no row and is a no-op.
func (r *UserRepo) AddProfile(ctx context.Context, userID uint64, role model.Role) error {
	return addProfile(ctx, r.DB, userID, role)
}

func addProfile(ctx context.Context, db execer, userID uint64, role model.Role) error {
	if role == model.RoleUser {
		return nil
	}
	table, ok := profileTables[role]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}
	_, err := db.ExecContext(ctx, "INSERT INTO "+table+" (user_id) VALUES (?)", userID)
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}
