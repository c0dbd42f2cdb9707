//go:build integration

package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credgate/internal/identity/store/reservation"
	"credgate/pkg/platform/sentinel"
	"credgate/pkg/testutil/containers"
)

func TestRedisReservationStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("claim then conflict then release", func(t *testing.T) {
		store := reservation.NewRedis(rc.Client)

		require.NoError(t, store.Claim(ctx, "jane@example.com"))
		require.ErrorIs(t, store.Claim(ctx, "jane@example.com"), sentinel.ErrAlreadyUsed)

		require.NoError(t, store.Release(ctx, "jane@example.com"))
		require.NoError(t, store.Claim(ctx, "jane@example.com"))
	})

	t.Run("claims expire", func(t *testing.T) {
		store := reservation.NewRedis(rc.Client, reservation.WithTTL(time.Second))

		require.NoError(t, store.Claim(ctx, "short@example.com"))
		require.Eventually(t, func() bool {
			return store.Claim(ctx, "short@example.com") == nil
		}, 5*time.Second, 250*time.Millisecond)
	})

	t.Run("release of unclaimed identifier is a no-op", func(t *testing.T) {
		store := reservation.NewRedis(rc.Client)
		require.NoError(t, store.Release(ctx, "never@example.com"))
	})
}
