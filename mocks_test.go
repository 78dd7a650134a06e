package membership_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halomag/membership"
)

// mockConfig implements membership.Config
type mockConfig struct {
	signingKey string
	issuer     string
	audience   []string
	tokenExp   int
}

func (c *mockConfig) GetSigningKey() string { return c.signingKey }
func (c *mockConfig) GetIssuer() string     { return c.issuer }
func (c *mockConfig) GetAudience() []string { return c.audience }
func (c *mockConfig) GetTokenExpiration() int {
	return c.tokenExp
}

func testConfig() *mockConfig {
	return &mockConfig{
		signingKey: "test-signing-key",
		issuer:     "test-issuer",
		audience:   []string{"test:audience"},
		tokenExp:   24,
	}
}

// fakeAccountStore is an in-memory membership.AccountStore and
// membership.RecipientSource.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*membership.Account
}

func newFakeAccountStore(accounts ...*membership.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: map[string]*membership.Account{}}
	for _, a := range accounts {
		s.accounts[a.ID.String()] = a
	}
	return s
}

func (s *fakeAccountStore) add(name, email, passwordHash string) *membership.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := &membership.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	s.accounts[account.ID.String()] = account
	return account
}

func (s *fakeAccountStore) FindByID(_ context.Context, id string) (*membership.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		return account, nil
	}
	return nil, membership.ErrAccountNotFound
}

func (s *fakeAccountStore) FindByEmail(_ context.Context, email string) (*membership.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, membership.ErrAccountNotFound
}

func (s *fakeAccountStore) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return membership.ErrAccountNotFound
	}
	account.EmailVerifiedAt = &at
	return nil
}

func (s *fakeAccountStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return membership.ErrAccountNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (s *fakeAccountStore) OptedIn(context.Context, membership.EventKind) ([]*membership.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*membership.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// recordingMailer captures every send and can fail specific recipients.
type recordingMailer struct {
	mu     sync.Mutex
	sent   []membership.Email
	failTo map[string]error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{failTo: map[string]error{}}
}

func (m *recordingMailer) failFor(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTo[to] = fmt.Errorf("smtp: delivery to %s refused", to)
}

func (m *recordingMailer) Send(_ context.Context, msg membership.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []membership.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]membership.Email(nil), m.sent...)
}

// staticRenderer formats the payload without touching template files.
type staticRenderer struct{}

func (staticRenderer) Render(kind membership.EventKind, data map[string]any) (string, error) {
	return fmt.Sprintf("<p>%s name=%v token=%v title=%v</p>", kind, data["name"], data["token"], data["title"]), nil
}

// captureSink records activity events.
type captureSink struct {
	mu     sync.Mutex
	events []membership.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event membership.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) recorded() []membership.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]membership.ActivityEvent(nil), s.events...)
}
