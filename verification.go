package membership

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// VerificationFlow drives the stateless email verification and password
// reset protocols. Both ride on signed tokens: there is no pending-state
// table, validity is decided entirely from signature, expiry, and the
// claim checks below.
type VerificationFlow struct {
	accounts AccountStore
	codec    *TokenService
	bus      *Bus
	activity ActivitySink
	logger   Logger
}

// NewVerificationFlow wires the flow to its collaborators.
func NewVerificationFlow(accounts AccountStore, codec *TokenService, bus *Bus) *VerificationFlow {
	return &VerificationFlow{
		accounts: accounts,
		codec:    codec,
		bus:      bus,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (f *VerificationFlow) WithLogger(logger Logger) *VerificationFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for emitting flow events.
func (f *VerificationFlow) WithActivitySink(sink ActivitySink) *VerificationFlow {
	f.activity = normalizeActivitySink(sink)
	return f
}

// RequestEmailVerification issues a verification token bound to the
// account's current email and publishes the notification event. Fails
// with ErrAlreadyVerified without issuing a token when the email is
// already confirmed.
func (f *VerificationFlow) RequestEmailVerification(ctx context.Context, accountID string) (string, error) {
	account, err := f.accounts.FindByID(ctx, accountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrAccountNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for verification request")
	}

	if account.IsEmailVerified() {
		return "", ErrAlreadyVerified
	}

	token, err := f.codec.Issue(accountID, PurposeEmailVerification, TokenOptions{
		Email: account.Email,
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification token")
	}

	f.bus.Publish(ctx, EventVerifyEmail, VerifyEmailMessage{
		To:    account.Email,
		Name:  account.DisplayName(),
		Token: token,
	})

	return token, nil
}

// ConfirmEmailVerification validates the token against the account and
// marks the email verified. The purpose, subject, and bound email must all
// match; a token issued before an email change is rejected even though its
// signature and expiry are still good. Every failure surfaces as
// ErrInvalidOrExpiredToken.
func (f *VerificationFlow) ConfirmEmailVerification(ctx context.Context, accountID, token string) error {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	if claims.Purpose() != PurposeEmailVerification {
		f.logger.Debug("email verification rejected token with purpose %q", claims.Purpose())
		return ErrInvalidOrExpiredToken
	}

	if claims.Subject() != accountID {
		f.logger.Debug("email verification token subject does not match account %s", accountID)
		return ErrInvalidOrExpiredToken
	}

	account, err := f.accounts.FindByID(ctx, accountID)
	if err != nil {
		f.logger.Debug("email verification account lookup failed: %v", err)
		return ErrInvalidOrExpiredToken
	}

	if account.Email != claims.BoundEmail() {
		f.logger.Debug("email changed since verification token was issued for account %s", accountID)
		return ErrInvalidOrExpiredToken
	}

	if err := f.accounts.MarkEmailVerified(ctx, accountID, time.Now()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	f.recordActivity(ctx, ActivityEventEmailVerified, accountID)

	return nil
}

// RequestPasswordReset issues an identity-only reset token for the account
// behind the email and publishes the notification event. Unlike login,
// unknown emails surface as ErrAccountNotFound here; the caller decides
// whether to mask that.
func (f *VerificationFlow) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	account, err := f.accounts.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrAccountNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for reset request")
	}

	token, err := f.codec.Issue(account.ID.String(), PurposeResetPassword, TokenOptions{})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
	}

	f.bus.Publish(ctx, EventResetPassword, ResetPasswordEmail{
		To:    account.Email,
		Name:  account.DisplayName(),
		Token: token,
	})

	return token, nil
}

// ConfirmPasswordReset validates the token and replaces the account's
// credential. Reset tokens are stateless: there is no consumed-token
// registry, so a captured token stays replayable until its 15 minute TTL
// runs out. Known gap, kept deliberately; add a revocation list if
// stricter semantics are ever needed.
func (f *VerificationFlow) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	if claims.Purpose() != PurposeResetPassword {
		f.logger.Debug("password reset rejected token with purpose %q", claims.Purpose())
		return ErrInvalidOrExpiredToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := f.accounts.UpdatePasswordHash(ctx, claims.Subject(), hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	f.recordActivity(ctx, ActivityEventPasswordResetSuccess, claims.Subject())

	return nil
}

func (f *VerificationFlow) recordActivity(ctx context.Context, eventType ActivityEventType, accountID string) {
	event := ActivityEvent{
		EventType:  eventType,
		AccountID:  accountID,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(f.activity).Record(ctx, event); err != nil {
		f.logger.Warn("activity sink record error: %v", err)
	}
}
