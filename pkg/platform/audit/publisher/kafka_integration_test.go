//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"credgate/pkg/platform/audit"
	"credgate/pkg/platform/audit/publisher"
	"credgate/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	const topic = "credgate.audit"

	pub, err := publisher.NewKafka([]string{rp.Broker}, topic)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	require.NoError(t, pub.EnsureTopic(ctx, 1, 1))
	// Second call must tolerate the topic already existing.
	require.NoError(t, pub.EnsureTopic(ctx, 1, 1))

	userID := uuid.New()
	require.NoError(t, pub.Emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		UserID:   userID,
		Email:    "jane@example.com",
		Action:   audit.ActionPasswordChanged,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, userID.String(), string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, audit.ActionPasswordChanged, got.Action)
	require.Equal(t, "jane@example.com", got.Email)
	require.False(t, got.Timestamp.IsZero())
}
