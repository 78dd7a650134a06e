package membership

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. The purpose discriminator prevents a token issued for
// one flow from being accepted by another; a mismatch is always rejected,
// never coerced.
const (
	PurposeSession           = "session"
	PurposeEmailVerification = "email_verification"
	PurposeResetPassword     = "reset_password"
)

// Purpose TTLs for the single-purpose token types. Session lifetime comes
// from Config.
const (
	EmailVerificationTTL = time.Hour
	PasswordResetTTL     = 15 * time.Minute
)

// TokenClaims is the signed claim set carried by every token this package
// issues. The `type` field is the purpose discriminator; `email` is only
// set on email verification tokens and binds the address at issuance time.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenPurpose string `json:"type,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Purpose returns the purpose discriminator
func (c *TokenClaims) Purpose() string {
	return c.TokenPurpose
}

// BoundEmail returns the email address bound at issuance time, if any
func (c *TokenClaims) BoundEmail() string {
	return c.Email
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// DefaultTTL returns the built-in lifetime for single-purpose tokens and
// zero for everything else.
func DefaultTTL(purpose string) time.Duration {
	switch purpose {
	case PurposeEmailVerification:
		return EmailVerificationTTL
	case PurposeResetPassword:
		return PasswordResetTTL
	}
	return 0
}
