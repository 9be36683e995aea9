package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/utils"
)

// maxCreateAttempts bounds how often Create regenerates a token after a
// unique-key collision.
const maxCreateAttempts = 3

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// TokenRepo persists refresh tokens (single 'token_hash' column). Rows are
// only ever inserted or deleted.
type TokenRepo struct {
	DB  *sql.DB
	TTL time.Duration
}

func NewTokenRepo(db *sql.DB, ttl time.Duration) *TokenRepo { return &TokenRepo{DB: db, TTL: ttl} }

// Create generates a new refresh token for userID, stores its hash with
// expires_at = now+TTL and returns the raw token. This is the only place
// the raw value is ever returned.
func (r *TokenRepo) Create(ctx context.Context, userID uint64, now time.Time) (utils.RefreshToken, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		tok, err := utils.NewRefreshToken(now, r.TTL)
		if err != nil {
			return utils.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
		}
		err = r.insert(ctx, userID, utils.HashRefreshRaw(tok.Raw), tok.Exp, now)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			return utils.RefreshToken{}, err
		}
	}
	return utils.RefreshToken{}, ErrConflict
}

func (r *TokenRepo) insert(ctx context.Context, userID uint64, tokenHash string, exp, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, tokenHash, exp, now.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicateToken
	}
	return err
}

// Lookup returns the stored record for a raw token, or ErrNotFound.
// Expiry is not checked here.
func (r *TokenRepo) Lookup(ctx context.Context, raw string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		utils.HashRefreshRaw(raw)).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return t, err
}

// Delete removes the row for a raw token. Deleting an absent token is not an error.
func (r *TokenRepo) Delete(ctx context.Context, raw string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", utils.HashRefreshRaw(raw))
	return err
}

// DeleteByID removes a row by primary key.
func (r *TokenRepo) DeleteByID(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", id)
	return err
}

// DeleteByUser revokes all of a user's refresh tokens.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes every token whose expiry lies before now.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
