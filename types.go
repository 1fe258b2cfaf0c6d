package accounts

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AccountStore is the credential store contract the lifecycle manager
// depends on. The bun-backed repository implements it; tests swap in a mock.
// Lookups that find nothing return a record-not-found error the manager
// translates into its anti-enumeration responses.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*Account, error)
	FindByResetToken(ctx context.Context, token string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save persists the record, creating it when it has no id yet. The
	// manager reads a snapshot, computes the new state, and issues one
	// Save; it never mutates a shared live object.
	Save(ctx context.Context, record *Account) (*Account, error)

	// UpdateFailedAttempts persists the post-increment failed-login count
	// and, when the threshold was reached, the lock timestamp. The write is
	// a single conditional UPDATE so a concurrent attempt can never lower
	// the stored counter.
	UpdateFailedAttempts(ctx context.Context, email string, attempts int, lockedAt *time.Time) error

	// ResetFailedAttempts zeroes the counter, clears the lock, and records
	// the login time in one statement.
	ResetFailedAttempts(ctx context.Context, email string, loginTime time.Time) error
}

// TokenService signs and validates self-contained tokens, and mints the
// opaque tokens whose validity lives in the AccountStore.
type TokenService interface {
	IssueAccessToken(account *Account) (string, int64, error)
	IssueRefreshToken(account *Account) (string, error)
	Validate(raw string) (*TokenClaims, error)
	TokenType(raw string) string
}

// Hasher is the one-way adaptive password hashing contract.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
}

// Notifier delivers a single notification. Implementations talk to mail
// transports; the core only ever calls them through a Dispatcher.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// Config holds account security options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetVerificationTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetMaxLoginAttempts() int
	GetLockDuration() time.Duration
	GetBcryptCost() int
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
