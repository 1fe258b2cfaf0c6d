package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a signed token with its purpose.
type TokenKind = string

const (
	// TokenKindAccess marks short lived API tokens
	TokenKindAccess TokenKind = "ACCESS"
	// TokenKindRefresh marks long lived renewal tokens
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenClaims is the payload carried by signed access and refresh tokens.
// Opaque verification/reset tokens carry no claims; their state lives in
// the credential store.
type TokenClaims struct {
	jwt.RegisteredClaims
	AccountID string    `json:"uid,omitempty"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"name,omitempty"`
	Kind      TokenKind `json:"typ,omitempty"`
}

// UserID returns the account id, falling back to the subject claim.
func (c *TokenClaims) UserID() string {
	if c.AccountID != "" {
		return c.AccountID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiry time or the zero time when unset.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued-at time or the zero time when unset.
func (c *TokenClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// IsAccess reports whether the claims belong to an access token.
func (c *TokenClaims) IsAccess() bool {
	return c.Kind == TokenKindAccess
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *TokenClaims) IsRefresh() bool {
	return c.Kind == TokenKindRefresh
}
