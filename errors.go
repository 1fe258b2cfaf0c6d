package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to boundary layers so they can map errors to
// transport status codes without string matching.
const (
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeNotVerified        = "ACCOUNT_NOT_VERIFIED"
	TextCodeAlreadyVerified    = "ALREADY_VERIFIED"
	TextCodeSigningKeyTooShort = "SIGNING_KEY_TOO_SHORT"
)

// ErrPasswordMismatch is returned when password and confirmation differ.
var ErrPasswordMismatch = goerrors.New("password and confirm password do not match", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrAccountNotFound is returned where disclosing absence is safe,
// e.g. resending a verification email.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidCredentials is the generic login failure. It never reveals
// which half of email/password was wrong.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken is the generic failure for opaque tokens. It never reveals
// whether the token exists or belongs to someone else.
var ErrInvalidToken = goerrors.New("invalid or unknown token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for structurally invalid signed tokens.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while the lockout window is in effect.
var ErrAccountLocked = goerrors.New("account is locked due to multiple failed login attempts", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotVerified gates login until the email has been verified.
var ErrAccountNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyVerified is returned when verifying an account twice.
var ErrAlreadyVerified = goerrors.New("account is already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeConflict)

// ErrSigningKeyTooShort is a startup-time misconfiguration. It is the only
// error in this package callers are not expected to recover from.
var ErrSigningKeyTooShort = goerrors.New("signing key must be at least 32 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodeSigningKeyTooShort).
	WithCode(goerrors.CodeBadRequest)

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsTokenMalformedError will check for structurally invalid signed tokens
func IsTokenMalformedError(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed)
}

// IsInvalidTokenError will check for unknown or invalid tokens
func IsInvalidTokenError(err error) bool {
	return hasTextCode(err, TextCodeInvalidToken)
}

// IsInvalidCredentialsError will check for the generic login failure
func IsInvalidCredentialsError(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsAccountLockedError will check for lockout rejections
func IsAccountLockedError(err error) bool {
	return hasTextCode(err, TextCodeAccountLocked)
}

// IsNotVerifiedError will check for unverified account rejections
func IsNotVerifiedError(err error) bool {
	return hasTextCode(err, TextCodeNotVerified)
}
