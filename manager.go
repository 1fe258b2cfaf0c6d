package accounts

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Manager orchestrates the account lifecycle: register, verify, login,
// forgot/reset password. It reads snapshots from the store, computes the
// new state, and issues one save or atomic update per operation; it never
// caches an account across requests.
type Manager struct {
	store      AccountStore
	tokens     TokenService
	hasher     Hasher
	policy     LockoutPolicy
	dispatcher *Dispatcher
	logger     Logger
	cfg        Config
	now        func() time.Time
}

// NewManager wires a Manager from a store and configuration. It fails fast
// when the signing key is misconfigured; nothing else here can fail.
func NewManager(store AccountStore, cfg Config) (*Manager, error) {
	tokens, err := NewTokenService(cfg, defLogger{})
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:      store,
		tokens:     tokens,
		hasher:     NewBcryptHasher(cfg.GetBcryptCost()),
		policy:     NewLockoutPolicy(cfg),
		dispatcher: NewDispatcher(nil),
		logger:     defLogger{},
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// NewManagerFromRepository is a convenience constructor for bun-backed setups.
func NewManagerFromRepository(repo RepositoryManager, cfg Config) (*Manager, error) {
	if err := repo.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "repository manager is not usable")
	}
	return NewManager(repo.Accounts(), cfg)
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithNotifier replaces the dispatcher's notifier, keeping dispatch
// fire-and-forget.
func (m *Manager) WithNotifier(notifier Notifier, opts ...DispatcherOption) *Manager {
	if m.dispatcher != nil {
		m.dispatcher.Close()
	}
	opts = append(opts, WithDispatcherLogger(m.logger))
	m.dispatcher = NewDispatcher(notifier, opts...)
	return m
}

// WithDispatcher swaps in a preconfigured dispatcher.
func (m *Manager) WithDispatcher(dispatcher *Dispatcher) *Manager {
	if dispatcher != nil {
		m.dispatcher = dispatcher
	}
	return m
}

// WithHasher overrides the password hasher.
func (m *Manager) WithHasher(hasher Hasher) *Manager {
	if hasher != nil {
		m.hasher = hasher
	}
	return m
}

// WithTokenService overrides the token service.
func (m *Manager) WithTokenService(tokens TokenService) *Manager {
	if tokens != nil {
		m.tokens = tokens
	}
	return m
}

// WithClock overrides the time source, used by tests to drive expiry and
// lockout windows.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now == nil {
		return m
	}
	m.now = now
	if ts, ok := m.tokens.(*TokenServiceImpl); ok {
		ts.WithClock(now)
	}
	return m
}

// TokenService exposes the token service for boundary layers that validate
// bearer tokens on their own.
func (m *Manager) TokenService() TokenService {
	return m.tokens
}

// Close releases the notification dispatcher.
func (m *Manager) Close() {
	if m.dispatcher != nil {
		m.dispatcher.Close()
	}
}

// Register creates an unverified account and queues a verification email.
// A dispatch failure never fails registration, the user can request a
// resend.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (*AccountInfo, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	email := NormalizeEmail(input.Email)

	exists, err := m.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := m.hasher.Hash(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	token := NewOpaqueToken()
	expiry := m.now().Add(m.cfg.GetVerificationTokenTTL())

	account := &Account{
		FirstName:               strings.TrimSpace(input.FirstName),
		LastName:                strings.TrimSpace(input.LastName),
		Email:                   email,
		PasswordHash:            hash,
		IsVerified:              false,
		VerificationToken:       token,
		VerificationTokenExpiry: &expiry,
	}

	saved, err := m.store.Save(ctx, account)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
	}

	m.dispatch(NotificationVerify, saved, map[string]any{"token": token})

	m.logger.Info("account registered", "email", saved.Email)

	info := saved.Info()
	return &info, nil
}

// VerifyEmail flips an account to verified and burns the opaque token.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	account, err := m.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	if account.VerificationTokenExpiry == nil || m.now().After(*account.VerificationTokenExpiry) {
		return ErrTokenExpired
	}

	if account.IsVerified {
		return ErrAlreadyVerified
	}

	account.IsVerified = true
	account.VerificationToken = ""
	account.VerificationTokenExpiry = nil

	if _, err := m.store.Save(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
	}

	m.dispatch(NotificationWelcome, account, nil)

	m.logger.Info("email verified", "email", account.Email)

	return nil
}

// ResendVerification rotates the verification token, invalidating any
// prior one, and queues a fresh email.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	account, err := m.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	if account.IsVerified {
		return ErrAlreadyVerified
	}

	token := NewOpaqueToken()
	expiry := m.now().Add(m.cfg.GetVerificationTokenTTL())

	account.VerificationToken = token
	account.VerificationTokenExpiry = &expiry

	if _, err := m.store.Save(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate verification token")
	}

	m.dispatch(NotificationVerify, account, map[string]any{"token": token})

	return nil
}

// Login authenticates an email/password pair. The lock and verification
// checks run before the password compare so a locked or unverified account
// never learns whether the password was correct.
func (m *Manager) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	account, err := m.store.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	now := m.now()

	if m.policy.IsLocked(account.LockedAt, now) {
		return nil, ErrAccountLocked
	}

	if !account.IsVerified {
		return nil, ErrAccountNotVerified
	}

	if err := m.hasher.Compare(password, account.PasswordHash); err != nil {
		if !IsInvalidCredentialsError(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
		}
		return nil, m.trackFailedLogin(ctx, account, now)
	}

	if err := m.store.ResetFailedAttempts(ctx, email, now); err != nil {
		// the login itself succeeded; a stale counter self-heals on the
		// next successful attempt
		m.logger.Error("failed to reset login attempts", "email", email, "error", err)
	}

	account.FailedLoginAttempts = 0
	account.LockedAt = nil
	account.LastLoginAt = &now

	return m.issueAuthResult(account, now)
}

func (m *Manager) trackFailedLogin(ctx context.Context, account *Account, now time.Time) error {
	failed := account.FailedLoginAttempts + 1

	var lockedAt *time.Time
	if m.policy.ShouldLock(failed) {
		lockedAt = &now
	}

	if err := m.store.UpdateFailedAttempts(ctx, account.Email, failed, lockedAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
	}

	if lockedAt != nil {
		m.logger.Warn("account locked", "email", account.Email, "attempts", failed)
		return ErrAccountLocked
	}

	return ErrInvalidCredentials
}

func (m *Manager) issueAuthResult(account *Account, now time.Time) (*AuthResult, error) {
	access, expiresIn, err := m.tokens.IssueAccessToken(account)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue access token")
	}

	refresh, err := m.tokens.IssueRefreshToken(account)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue refresh token")
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Account:      account.Info(),
		IssuedAt:     now,
	}, nil
}

// ForgotPassword starts the reset flow. The caller facing outcome is the
// same success whether the account exists, is unverified, or is fully
// active; only the last case mutates state and sends an email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	account, err := m.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			m.logger.Warn("password reset requested for unknown email")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	if !account.IsVerified {
		m.logger.Warn("password reset requested for unverified account", "email", account.Email)
		return nil
	}

	token := NewOpaqueToken()
	expiry := m.now().Add(m.cfg.GetResetTokenTTL())

	// only the most recent reset token is valid
	account.PasswordResetToken = token
	account.PasswordResetTokenExpiry = &expiry

	if _, err := m.store.Save(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
	}

	m.dispatch(NotificationReset, account, map[string]any{"token": token})

	return nil
}

// ValidateResetToken reports whether a matching, unexpired reset token
// exists. It is a query and never errors for a missing token.
func (m *Manager) ValidateResetToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	account, err := m.store.FindByResetToken(ctx, token)
	if err != nil {
		return false
	}

	if account.PasswordResetTokenExpiry == nil {
		return false
	}

	return !m.now().After(*account.PasswordResetTokenExpiry)
}

// ResetPassword finalizes the reset flow. A successful reset also clears
// the failed-attempt counter and unlocks the account.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	input := ResetPasswordInput{Token: token, NewPassword: newPassword}
	if err := input.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset payload")
	}

	account, err := m.store.FindByResetToken(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
	}

	if account.PasswordResetTokenExpiry == nil || m.now().After(*account.PasswordResetTokenExpiry) {
		return ErrTokenExpired
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account.PasswordHash = hash
	account.PasswordResetToken = ""
	account.PasswordResetTokenExpiry = nil
	account.FailedLoginAttempts = 0
	account.LockedAt = nil

	if _, err := m.store.Save(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	m.logger.Info("password reset", "email", account.Email)

	return nil
}

// ChangePassword is the authenticated path: the caller's identity arrives
// as an explicit argument, never from ambient state. Lock and verification
// state are untouched.
func (m *Manager) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := m.store.FindByID(ctx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	if err := m.hasher.Compare(currentPassword, account.PasswordHash); err != nil {
		if IsInvalidCredentialsError(err) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify current password")
	}

	if err := validation.Validate(newPassword, validation.Required, validation.Length(8, 72)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password")
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account.PasswordHash = hash

	if _, err := m.store.Save(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	return nil
}

// RefreshToken exchanges a valid refresh token for a fresh access/refresh
// pair. Counters and timestamps are untouched.
func (m *Manager) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := m.tokens.Validate(refreshToken)
	if err != nil {
		return nil, err
	}

	if !claims.IsRefresh() {
		return nil, ErrInvalidToken
	}

	account, err := m.store.FindByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	now := m.now()

	if m.policy.IsLocked(account.LockedAt, now) {
		return nil, ErrAccountLocked
	}

	if !account.IsVerified {
		return nil, ErrAccountNotVerified
	}

	return m.issueAuthResult(account, now)
}

// Me returns the sanitized profile for an authenticated caller.
func (m *Manager) Me(ctx context.Context, accountID string) (*AccountInfo, error) {
	account, err := m.store.FindByID(ctx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	info := account.Info()
	return &info, nil
}

func (m *Manager) dispatch(kind NotificationKind, account *Account, data map[string]any) {
	if m.dispatcher == nil {
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["first_name"] = account.FirstName

	m.dispatcher.Dispatch(Notification{
		Kind:      kind,
		Recipient: account.Email,
		Data:      data,
	})
}
