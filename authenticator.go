package membership

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Auther authenticates credentials and manages session lifecycle.
type Auther struct {
	accounts AccountStore
	sessions *SessionStore
	activity ActivitySink
	logger   Logger
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(accounts AccountStore, sessions *SessionStore) *Auther {
	return &Auther{
		accounts: accounts,
		sessions: sessions,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// Login verifies the credentials for an email and issues a session token.
//
// Accounts provisioned through an external identity may not carry a
// credential yet. The first successful login sets it from the supplied
// password instead of comparing; the bootstrap applies exactly once, while
// the account has no hash. Every other failure surfaces as
// ErrInvalidCredentials regardless of cause.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Debug("login lookup failed for %s: %v", email, err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"email": email,
		})
		return "", ErrInvalidCredentials
	}

	if !account.HasCredential() {
		// First login
		hash, err := HashPassword(password)
		if err != nil {
			return "", err
		}

		if err := s.accounts.UpdatePasswordHash(ctx, account.ID.String(), hash); err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store bootstrap credential")
		}

		s.logger.Info("credential bootstrapped on first login for account %s", account.ID)
	} else if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, account.ID.String(), map[string]any{
			"email": email,
		})
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(account.ID.String())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, account.ID.String(), map[string]any{
		"email": email,
	})

	return token, nil
}

// Logout revokes a session token. Unknown tokens are a no-op.
func (s *Auther) Logout(ctx context.Context, token string) {
	subjectID, err := s.sessions.Resolve(token)
	s.sessions.Revoke(token)

	if err == nil {
		s.emitAuthEvent(ctx, ActivityEventLogout, subjectID, nil)
	}
}

// ResolveSession returns the account behind a valid session token.
func (s *Auther) ResolveSession(ctx context.Context, token string) (*Account, error) {
	subjectID, err := s.sessions.Resolve(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, subjectID)
	if err != nil {
		s.logger.Error("session resolved to missing account %s: %v", subjectID, err)
		return nil, ErrInvalidSession
	}

	return account, nil
}

// ChangePassword verifies the current credential and replaces it.
func (s *Auther) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for password change")
	}

	if err := ComparePasswordAndHash(currentPassword, account.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new credential")
	}

	return nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, accountID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		AccountID:  accountID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
