package model

import "time"

// User represents an identity record as stored in the `users` table.
// The json tags are omitted here because these structs are primarily used
// internally by the repository layer; handlers define their own response
// types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – contact address, copied into access token claims.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – inactive accounts can neither log in nor renew.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role is the single closed-set classification of an identity. It is
// derived from which profile row (administrators, professors, students)
// owns the user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStudent   Role = "student"
	// RoleUser is an authenticated identity without any profile.
	RoleUser Role = "user"
)

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// Profiles records which profile tables reference a user. By policy at
// most one flag is set, but callers must not rely on it.
type Profiles struct {
	Administrator bool
	Professor     bool
	Student       bool
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is handed to the client once and never stored; only its SHA‑256
// hash is kept. Rows are inserted and deleted, never updated.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value (unique).
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}

// Expired reports whether the token is past its expiry at now. A token is
// still usable at the exact expiry instant.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
