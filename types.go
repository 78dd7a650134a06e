package membership

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

// Config holds token options. The signing key is read once at
// construction time and is immutable for the process lifetime.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenExpiration is the session token lifetime in hours.
	GetTokenExpiration() int
}

// AccountStore is the persistence collaborator the credential and
// verification flows depend on.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// RecipientSource resolves the accounts opted into a broadcast category.
type RecipientSource interface {
	OptedIn(ctx context.Context, kind EventKind) ([]*Account, error)
}

// Email is the structured send request handed to the mail transport.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// TemplateRenderer turns an event payload into a markup string.
type TemplateRenderer interface {
	Render(kind EventKind, data map[string]any) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] MEMBERSHIP "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] MEMBERSHIP "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] MEMBERSHIP "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] MEMBERSHIP "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
