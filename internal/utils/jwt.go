package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"     // secure random number generation
	"crypto/sha256"   // SHA‑256 hashing for refresh tokens
	"encoding/base64" // URL-safe encoding of refresh tokens
	"encoding/hex"    // hex encoding of refresh token digests
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/gecilind/University-Management-System/internal/model"
)

// Verification failures reported by TokenCodec.Verify. Callers distinguish
// ErrTokenExpired (the client should renew) from the other two (it should not).
var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenSignature = errors.New("token signature is invalid")
)

// refreshTokenBytes is the amount of random data behind a refresh token.
// 64 bytes encode to 86 URL-safe characters.
const refreshTokenBytes = 64

// AccessClaims is the payload of an access token. user_id, username, email
// and role are application claims; iat, exp and sub come from the
// registered claims.
type AccessClaims struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field contains the raw token string returned to the client.  The Exp
// field records when it expires.  In the database only a SHA‑256 hash of the
// raw string is stored.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// TokenCodec signs and verifies HS256 access tokens with a single server
// secret. It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec returns a codec signing with secret. Every issued token is
// valid for ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// TTL returns the access token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue builds and signs an access token for user with the given role.
// iat is now and exp is now+TTL, both at second precision: now is
// truncated first, so a token can expire up to one second early but never
// late.
func (c *TokenCodec) Issue(user model.User, role model.Role, now time.Time) (AccessToken, error) {
	now = now.UTC().Truncate(time.Second)
	exp := now.Add(c.ttl)
	claims := AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and expiry of raw as of now. The signature
// is verified first, so ErrTokenExpired is only returned for tokens this
// codec actually signed.
func (c *TokenCodec) Verify(raw string, now time.Time) (*AccessClaims, error) {
	var claims AccessClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenSignature
	default:
		return nil, ErrTokenMalformed
	}
	if !tok.Valid || claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw)
// expiring ttl after now, truncated to the second like the DATETIME column
// it is stored in.
func NewRefreshToken(now time.Time, ttl time.Duration) (RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: base64.RawURLEncoding.EncodeToString(buf),
		Exp: now.UTC().Add(ttl).Truncate(time.Second),
	}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash in the database prevents attackers from
// using stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
