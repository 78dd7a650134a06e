package membership_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halomag/membership"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := membership.NewBus()

	var mu sync.Mutex
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(membership.EventWelcome, func(context.Context, any) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{To: "a@b.c"})
	bus.Wait()

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusPublishDoesNotBlock(t *testing.T) {
	bus := membership.NewBus()

	release := make(chan struct{})
	bus.Subscribe(membership.EventNewPost, func(context.Context, any) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), membership.EventNewPost, membership.NewPostEmail{Title: "t"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow handler")
	}

	close(release)
	bus.Wait()
}

func TestBusIsolatesFailingHandlers(t *testing.T) {
	bus := membership.NewBus()

	var mu sync.Mutex
	var reached []string

	bus.Subscribe(membership.EventWelcome, func(context.Context, any) error {
		return errors.New("boom")
	})
	bus.Subscribe(membership.EventWelcome, func(context.Context, any) error {
		panic("worse")
	})
	bus.Subscribe(membership.EventWelcome, func(context.Context, any) error {
		mu.Lock()
		reached = append(reached, "survivor")
		mu.Unlock()
		return nil
	})

	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{})
	bus.Wait()

	assert.Equal(t, []string{"survivor"}, reached)
}

func TestBusSurvivesPublisherCancellation(t *testing.T) {
	bus := membership.NewBus()

	got := make(chan error, 1)
	bus.Subscribe(membership.EventResetPassword, func(ctx context.Context, _ any) error {
		got <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, membership.EventResetPassword, membership.ResetPasswordEmail{})
	bus.Wait()

	// Delivery context must outlive the publisher's.
	require.Len(t, got, 1)
	assert.NoError(t, <-got)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := membership.NewBus()
	// Must not panic or leak.
	bus.Publish(context.Background(), membership.EventVerifyEmail, membership.VerifyEmailMessage{})
	bus.Wait()
}

func TestBusIndependentKinds(t *testing.T) {
	bus := membership.NewBus()

	var mu sync.Mutex
	counts := map[membership.EventKind]int{}
	record := func(kind membership.EventKind) membership.EventHandler {
		return func(context.Context, any) error {
			mu.Lock()
			counts[kind]++
			mu.Unlock()
			return nil
		}
	}

	bus.Subscribe(membership.EventWelcome, record(membership.EventWelcome))
	bus.Subscribe(membership.EventNewPost, record(membership.EventNewPost))

	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{})
	bus.Publish(context.Background(), membership.EventWelcome, membership.WelcomeEmail{})
	bus.Publish(context.Background(), membership.EventNewPost, membership.NewPostEmail{})
	bus.Wait()

	assert.Equal(t, 2, counts[membership.EventWelcome])
	assert.Equal(t, 1, counts[membership.EventNewPost])
}
