package membership

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds is used for login failures regardless of cause
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeAlreadyVerified is used when re-requesting verification
	TextCodeAlreadyVerified = "EMAIL_ALREADY_VERIFIED"
	// TextCodeInvalidToken covers signature, expiry, and claim failures
	TextCodeInvalidToken = "INVALID_OR_EXPIRED_TOKEN"
	// TextCodeAccountNotFound is used for unknown emails on reset requests
	TextCodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	// TextCodeInvalidSession covers unknown, revoked, and expired sessions
	TextCodeInvalidSession = "INVALID_SESSION"
	// TextCodeEmptyPassword is used when hashing an empty secret
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeEmailTaken is used on registration conflicts
	TextCodeEmailTaken = "EMAIL_ALREADY_REGISTERED"
)

// ErrInvalidCredentials is the uniform login failure. Unknown email and
// wrong password surface identically so callers cannot probe accounts.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrAlreadyVerified is returned when requesting verification for an
// account whose email is already verified.
var ErrAlreadyVerified = goerrors.New("email address is already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeConflict)

// ErrInvalidOrExpiredToken is the single public failure for token
// verification. Bad signature, expiry, purpose mismatch, subject mismatch,
// and stale email binding all collapse to it; the concrete cause is only
// logged, never surfaced.
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken)

// ErrAccountNotFound is returned when a password reset is requested for an
// email no account carries.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidSession is returned for session tokens that are expired,
// revoked, or were never issued by this process.
var ErrInvalidSession = goerrors.New("invalid session", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSession)

// ErrNoEmptyString rejects empty secrets before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
