package membership_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halomag/membership"
)

func newTestDispatcher(mailer membership.Mailer, recipients membership.RecipientSource) (*membership.Dispatcher, *membership.Bus) {
	bus := membership.NewBus()
	dispatcher := membership.NewDispatcher(mailer, staticRenderer{}, recipients).
		WithSleep(func(time.Duration) {})
	dispatcher.Register(bus)
	return dispatcher, bus
}

func TestDispatcherSingleRecipientKinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    membership.EventKind
		payload any
		to      string
		subject string
	}{
		{
			name:    "welcome",
			kind:    membership.EventWelcome,
			payload: membership.WelcomeEmail{To: "new@halodergisi.com", Name: "Ayşe"},
			to:      "new@halodergisi.com",
			subject: "HALO Dergisi'ne Hoş Geldiniz!",
		},
		{
			name:    "verify email",
			kind:    membership.EventVerifyEmail,
			payload: membership.VerifyEmailMessage{To: "new@halodergisi.com", Name: "Ayşe", Token: "tok-1"},
			to:      "new@halodergisi.com",
			subject: "E-posta Adresinizi Doğrulayın",
		},
		{
			name:    "reset password",
			kind:    membership.EventResetPassword,
			payload: membership.ResetPasswordEmail{To: "new@halodergisi.com", Name: "Ayşe", Token: "tok-2"},
			to:      "new@halodergisi.com",
			subject: "Şifre Sıfırlama Talebi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := newRecordingMailer()
			_, bus := newTestDispatcher(mailer, newFakeAccountStore())

			bus.Publish(context.Background(), tt.kind, tt.payload)
			bus.Wait()

			sent := mailer.messages()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.to, sent[0].To)
			assert.Equal(t, tt.subject, sent[0].Subject)
			assert.NotEmpty(t, sent[0].HTML)
		})
	}
}

func TestDispatcherSwallowsTransportFailure(t *testing.T) {
	mailer := newRecordingMailer()
	mailer.failFor("new@halodergisi.com")
	_, bus := newTestDispatcher(mailer, newFakeAccountStore())

	// Publish must not surface the failure anywhere.
	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{
		To:   "new@halodergisi.com",
		Name: "Ayşe",
	})
	bus.Wait()

	assert.Empty(t, mailer.messages())
}

func TestDispatcherBroadcastFanOut(t *testing.T) {
	store := newFakeAccountStore()
	for i := 0; i < 5; i++ {
		store.add(fmt.Sprintf("Okur %d", i), fmt.Sprintf("reader%d@halodergisi.com", i), "")
	}

	mailer := newRecordingMailer()

	bus := membership.NewBus()
	var delays []time.Duration
	dispatcher := membership.NewDispatcher(mailer, staticRenderer{}, store).
		WithSleep(func(d time.Duration) {
			delays = append(delays, d)
		})
	dispatcher.Register(bus)

	bus.Publish(context.Background(), membership.EventNewPost, membership.NewPostEmail{
		Title:   "Yeni Sayı",
		Content: "İçindekiler...",
		Slug:    "yeni-sayi-42",
	})
	bus.Wait()

	sent := mailer.messages()
	require.Len(t, sent, 5)
	for i, msg := range sent {
		assert.Equal(t, fmt.Sprintf("reader%d@halodergisi.com", i), msg.To)
		assert.Equal(t, "Yeni Bir Gönderi Yayınlandı!", msg.Subject)
		assert.Contains(t, msg.HTML, fmt.Sprintf("Okur %d", i))
	}

	// One pacing delay per recipient, each drawn from [500ms, 1500ms).
	require.Len(t, delays, 5)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 1500*time.Millisecond)
	}
}

func TestDispatcherBroadcastContinuesOnError(t *testing.T) {
	store := newFakeAccountStore()
	store.add("Bir", "a@halodergisi.com", "")
	store.add("İki", "b@halodergisi.com", "")
	store.add("Üç", "c@halodergisi.com", "")

	mailer := newRecordingMailer()
	mailer.failFor("b@halodergisi.com")
	_, bus := newTestDispatcher(mailer, store)

	bus.Publish(context.Background(), membership.EventNewPost, membership.NewPostEmail{Title: "T"})
	bus.Wait()

	sent := mailer.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@halodergisi.com", sent[0].To)
	assert.Equal(t, "c@halodergisi.com", sent[1].To)
}

func TestDispatcherBroadcastNameFallback(t *testing.T) {
	store := newFakeAccountStore()
	store.add("", "anon@halodergisi.com", "")

	mailer := newRecordingMailer()
	_, bus := newTestDispatcher(mailer, store)

	bus.Publish(context.Background(), membership.EventNewPost, membership.NewPostEmail{Title: "T"})
	bus.Wait()

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, "HALO Okuyucusu")
}

func TestDispatcherCustomSubject(t *testing.T) {
	mailer := newRecordingMailer()
	bus := membership.NewBus()
	dispatcher := membership.NewDispatcher(mailer, staticRenderer{}, newFakeAccountStore()).
		WithSleep(func(time.Duration) {}).
		WithSubject(membership.EventWelcome, "Welcome aboard")
	dispatcher.Register(bus)

	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{To: "x@y.z"})
	bus.Wait()

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome aboard", sent[0].Subject)
}

func TestLogMailer(t *testing.T) {
	m := membership.LogMailer{}
	assert.NoError(t, m.Send(context.Background(), membership.Email{To: "x@y.z", Subject: "s"}))
}
