package publisher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credgate/pkg/platform/audit"
	"credgate/pkg/platform/audit/publisher"
	"credgate/pkg/platform/audit/store/memory"
)

func TestStorePublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("appends and stamps timestamp", func(t *testing.T) {
		store := memory.New()
		pub := publisher.NewStore(store)

		err := pub.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionPasswordChanged,
		})
		require.NoError(t, err)

		events := store.Events()
		require.Len(t, events, 1)
		require.Equal(t, audit.ActionPasswordChanged, events[0].Action)
		require.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("preserves caller timestamp", func(t *testing.T) {
		store := memory.New()
		pub := publisher.NewStore(store)

		stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		err := pub.Emit(ctx, audit.Event{
			Action:    audit.ActionUserCreated,
			Timestamp: stamp,
		})
		require.NoError(t, err)
		require.Equal(t, stamp, store.Events()[0].Timestamp)
	})

	t.Run("rejects events without an action", func(t *testing.T) {
		pub := publisher.NewStore(memory.New())
		require.Error(t, pub.Emit(ctx, audit.Event{Category: audit.CategoryCompliance}))
	})
}
