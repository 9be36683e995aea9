// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert cannot be performed because of a
// conflicting row and retrying did not help. Services translate this into
// an internal error; it is never shown to clients as-is.
var ErrConflict = errors.New("conflict")

// ErrDuplicateToken reports a unique-key collision on refresh_tokens.token_hash.
// TokenRepo retries on it internally.
var ErrDuplicateToken = errors.New("duplicate refresh token")
