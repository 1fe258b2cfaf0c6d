package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the credential record. It owns all security state for a user:
// verification, lockout counters, and pending token material.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName    string    `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName     string    `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	IsVerified   bool      `bun:"is_verified" json:"is_verified,omitempty"`

	VerificationToken        string     `bun:"verification_token,nullzero" json:"-"`
	VerificationTokenExpiry  *time.Time `bun:"verification_token_expiry,nullzero" json:"-"`
	PasswordResetToken       string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetTokenExpiry *time.Time `bun:"password_reset_token_expiry,nullzero" json:"-"`

	FailedLoginAttempts int        `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`
	LockedAt            *time.Time `bun:"locked_at,nullzero" json:"locked_at,omitempty"`

	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
}

// FullName joins first and last name for token claims and email templates.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Info returns the sanitized projection of the account. The password hash
// and pending token material never leave the package through this path.
func (a *Account) Info() AccountInfo {
	return AccountInfo{
		ID:          a.ID.String(),
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		IsVerified:  a.IsVerified,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// AccountInfo is the caller facing projection of an Account.
type AccountInfo struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	IsVerified  bool       `json:"is_verified"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// AuthResult is what a successful login or token refresh returns.
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	Account      AccountInfo `json:"account"`
	IssuedAt     time.Time   `json:"issued_at"`
}

// NormalizeEmail lowercases and trims an email address. Every comparison
// and every stored value goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
