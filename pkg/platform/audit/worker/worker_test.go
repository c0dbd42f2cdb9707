package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credgate/pkg/platform/audit"
	"credgate/pkg/platform/audit/store/memory"
	"credgate/pkg/platform/audit/worker"
)

func TestBufferedWorker(t *testing.T) {
	t.Run("drains events into the store", func(t *testing.T) {
		store := memory.New()
		pub, w := worker.Buffered(store, 8)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = w.Run(ctx)
		}()

		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionAuthFailed}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionAuthSucceeded}))

		require.Eventually(t, func() bool {
			return len(store.Events()) == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done

		events := store.Events()
		require.Equal(t, audit.ActionAuthFailed, events[0].Action)
		require.Equal(t, audit.ActionAuthSucceeded, events[1].Action)
	})

	t.Run("drops when the buffer is full instead of blocking", func(t *testing.T) {
		store := memory.New()
		pub, _ := worker.Buffered(store, 1)

		ctx := context.Background()
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionUserCreated}))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = pub.Emit(ctx, audit.Event{Action: audit.ActionUserCreated})
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Emit blocked on a full buffer")
		}
	})
}
