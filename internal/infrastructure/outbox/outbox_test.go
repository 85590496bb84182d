package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(observability.Nop(), Options{})
	var calls atomic.Int32
	handler := func(ctx context.Context, e domoutbox.Event) error {
		calls.Add(1)
		return nil
	}
	bus.Subscribe("order.placed", handler)
	bus.Subscribe("order.placed", handler)

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{"order.placed"}))
	require.NoError(t, bus.Publish(ctx, testEvent{"nobody.listens"}))
	bus.Stop(ctx)

	require.Equal(t, int32(2), calls.Load())
}

func TestBusSurvivesPanicsAndErrors(t *testing.T) {
	bus := NewBus(observability.Nop(), Options{Concurrency: 1})
	var ok atomic.Bool
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error { return errors.New("fail") })
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error { ok.Store(true); return nil })

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{"e"}))
	bus.Stop(ctx)

	require.True(t, ok.Load())
}

func TestPublishAfterStop(t *testing.T) {
	bus := NewBus(observability.Nop(), Options{})
	bus.Start(context.Background())
	bus.Stop(context.Background())
	require.ErrorIs(t, bus.Publish(context.Background(), testEvent{"e"}), ErrClosed)
}

func TestPublishHonoursContextWhenQueueFull(t *testing.T) {
	bus := NewBus(observability.Nop(), Options{QueueSize: 1})
	require.NoError(t, bus.Publish(context.Background(), testEvent{"e"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, bus.Publish(ctx, testEvent{"e"}), context.DeadlineExceeded)
}
