package models

import "time"

// TokenKind separates confirmation tokens from reset tokens. A token of one
// kind is never accepted where the other is expected.
type TokenKind string

const (
	TokenKindConfirm TokenKind = "confirm"
	TokenKindReset   TokenKind = "reset"
)

// Valid reports whether k is one of the known kinds.
func (k TokenKind) Valid() bool {
	return k == TokenKindConfirm || k == TokenKindReset
}

// AuthToken is a ledger row. Only the hash of the raw token is persisted.
type AuthToken struct {
	TokenHash string
	Email     string
	Kind      TokenKind
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}
