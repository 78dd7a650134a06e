package membership

import "sync"

// SessionStore is the registry of currently valid session tokens. Tokens
// are self-describing JWTs, the registry only exists so logout can revoke
// them before their natural expiry. Safe for concurrent use.
type SessionStore struct {
	codec  *TokenService
	logger Logger

	mu       sync.RWMutex
	sessions map[string]string
}

// NewSessionStore creates a session registry backed by the given codec.
func NewSessionStore(codec *TokenService) *SessionStore {
	return &SessionStore{
		codec:    codec,
		logger:   defLogger{},
		sessions: make(map[string]string),
	}
}

func (s *SessionStore) WithLogger(logger Logger) *SessionStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Issue mints a session token for the subject and registers it.
func (s *SessionStore) Issue(subjectID string) (string, error) {
	token, err := s.codec.Issue(subjectID, PurposeSession, TokenOptions{})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = subjectID
	s.mu.Unlock()

	return token, nil
}

// Register adds an externally minted token to the registry. Issue does
// this automatically; Register exists for restoring sessions.
func (s *SessionStore) Register(token, subjectID string) {
	s.mu.Lock()
	s.sessions[token] = subjectID
	s.mu.Unlock()
}

// Revoke removes a token from the registry. Revoking an unknown token is
// not an error.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Resolve returns the subject for a valid, registered session token.
// Syntactically valid tokens that were revoked or never issued here fail
// the same way expired ones do.
func (s *SessionStore) Resolve(token string) (string, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return "", ErrInvalidSession
	}

	if claims.Purpose() != PurposeSession {
		s.logger.Debug("session resolve rejected token with purpose %q", claims.Purpose())
		return "", ErrInvalidSession
	}

	s.mu.RLock()
	subjectID, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return "", ErrInvalidSession
	}

	return subjectID, nil
}

// Len reports how many tokens are currently registered, including ones
// past their expiry that were never revoked.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
