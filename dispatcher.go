package membership

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Default email subjects. Overridable per kind with WithSubject.
var defaultSubjects = map[EventKind]string{
	EventWelcome:       "HALO Dergisi'ne Hoş Geldiniz!",
	EventVerifyEmail:   "E-posta Adresinizi Doğrulayın",
	EventResetPassword: "Şifre Sıfırlama Talebi",
	EventNewPost:       "Yeni Bir Gönderi Yayınlandı!",
}

// Broadcast sends pause for a uniformly random delay in this window so we
// stay under the mail provider's throughput limits.
const (
	broadcastDelayMin    = 500 * time.Millisecond
	broadcastDelayJitter = time.Second
)

// Dispatcher consumes notification events and turns them into outbound
// mail. Transport failures are logged and swallowed: publication is
// fire-and-forget and must never fail the business operation that
// triggered it.
type Dispatcher struct {
	mailer     Mailer
	renderer   TemplateRenderer
	recipients RecipientSource
	logger     Logger
	subjects   map[EventKind]string
	sleep      func(time.Duration)
	jitter     func() time.Duration
}

// NewDispatcher creates a dispatcher with default subjects and delay.
func NewDispatcher(mailer Mailer, renderer TemplateRenderer, recipients RecipientSource) *Dispatcher {
	subjects := make(map[EventKind]string, len(defaultSubjects))
	for kind, subject := range defaultSubjects {
		subjects[kind] = subject
	}

	return &Dispatcher{
		mailer:     mailer,
		renderer:   renderer,
		recipients: recipients,
		logger:     defLogger{},
		subjects:   subjects,
		sleep:      time.Sleep,
		jitter: func() time.Duration {
			return broadcastDelayMin + rand.N(broadcastDelayJitter)
		},
	}
}

func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// WithSubject overrides the subject line used for an event kind.
func (d *Dispatcher) WithSubject(kind EventKind, subject string) *Dispatcher {
	d.subjects[kind] = subject
	return d
}

// WithSleep overrides the suspension primitive. Tests use this to observe
// inter-recipient delays without waiting them out.
func (d *Dispatcher) WithSleep(sleep func(time.Duration)) *Dispatcher {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

// WithJitter overrides the inter-recipient delay source.
func (d *Dispatcher) WithJitter(jitter func() time.Duration) *Dispatcher {
	if jitter != nil {
		d.jitter = jitter
	}
	return d
}

// Register subscribes the dispatcher to every event kind it handles. Call
// once during process initialization.
func (d *Dispatcher) Register(bus *Bus) {
	bus.Subscribe(EventWelcome, d.handleWelcome)
	bus.Subscribe(EventVerifyEmail, d.handleVerifyEmail)
	bus.Subscribe(EventResetPassword, d.handleResetPassword)
	bus.Subscribe(EventNewPost, d.handleNewPost)
}

func (d *Dispatcher) handleWelcome(ctx context.Context, payload any) error {
	p, ok := payload.(WelcomeEmail)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %q", payload, EventWelcome)
	}

	return d.renderAndSend(ctx, EventWelcome, p.To, map[string]any{
		"name": p.Name,
	})
}

func (d *Dispatcher) handleVerifyEmail(ctx context.Context, payload any) error {
	p, ok := payload.(VerifyEmailMessage)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %q", payload, EventVerifyEmail)
	}

	return d.renderAndSend(ctx, EventVerifyEmail, p.To, map[string]any{
		"name":  p.Name,
		"token": p.Token,
	})
}

func (d *Dispatcher) handleResetPassword(ctx context.Context, payload any) error {
	p, ok := payload.(ResetPasswordEmail)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %q", payload, EventResetPassword)
	}

	return d.renderAndSend(ctx, EventResetPassword, p.To, map[string]any{
		"name":  p.Name,
		"token": p.Token,
	})
}

// handleNewPost fans the broadcast out to every opted-in account, strictly
// sequentially, pausing between sends. One recipient's failure never
// aborts the rest.
func (d *Dispatcher) handleNewPost(ctx context.Context, payload any) error {
	p, ok := payload.(NewPostEmail)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %q", payload, EventNewPost)
	}

	accounts, err := d.recipients.OptedIn(ctx, EventNewPost)
	if err != nil {
		return fmt.Errorf("resolving recipients for %q: %w", EventNewPost, err)
	}

	for _, account := range accounts {
		name := account.DisplayName()
		if name == fallbackAccountName {
			name = fallbackReaderName
		}

		// Failures are already logged in renderAndSend; keep going. The
		// pacing delay applies either way.
		_ = d.renderAndSend(ctx, EventNewPost, account.Email, map[string]any{
			"name":        name,
			"title":       p.Title,
			"content":     p.Content,
			"slug":        p.Slug,
			"cover_image": p.CoverImage,
		})

		d.sleep(d.jitter())
	}

	return nil
}

func (d *Dispatcher) renderAndSend(ctx context.Context, kind EventKind, to string, data map[string]any) error {
	html, err := d.renderer.Render(kind, data)
	if err != nil {
		d.logger.Error("failed to render %q mail for %s: %v", kind, to, err)
		return err
	}

	msg := Email{
		To:      to,
		Subject: d.subjects[kind],
		HTML:    html,
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send mail to %s: %v", to, err)
		return err
	}

	d.logger.Info("mail sent to %s with subject %q", to, msg.Subject)
	return nil
}

// LogMailer is a development transport that logs instead of sending.
type LogMailer struct {
	Logger Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Email) error {
	normalizeLogger(m.Logger).Info("mail to=%s subject=%q bytes=%d", msg.To, msg.Subject, len(msg.HTML))
	return nil
}
