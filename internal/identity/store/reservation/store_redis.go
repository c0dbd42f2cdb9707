// Package reservation provides a short-lived claim on a normalized login
// identifier. The pipeline validates, then the service claims the identifier
// here before inserting, which narrows the window where two concurrent
// registrations both pass validation and race to the database constraint.
// The database unique index remains the final authority.
package reservation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"credgate/pkg/platform/sentinel"
)

var claimDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "credgate_identifier_claim_duration_ms",
	Help:    "Latency of identifier reservation claims in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	// Redis key prefix for claimed identifiers
	claimKeyPrefix = "resv:id:"

	// DefaultTTL bounds how long a claim outlives a crashed registration.
	DefaultTTL = 2 * time.Minute
)

// RedisStore is a Redis-backed identifier reservation store for distributed
// deployments where multiple instances accept registrations.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithTTL overrides the claim lifetime.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedis constructs a Redis-backed reservation store.
func NewRedis(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Claim reserves the identifier until Release or TTL expiry. A concurrent
// holder surfaces as sentinel.ErrAlreadyUsed. Identifiers are expected to be
// already normalized (lower-cased) by the pipeline.
func (s *RedisStore) Claim(ctx context.Context, identifier string) error {
	start := time.Now()
	defer func() {
		claimDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	ok, err := s.client.SetNX(ctx, claimKeyPrefix+identifier, "1", s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// Release frees a claim, typically after the insert failed for an unrelated
// reason. Releasing an unclaimed identifier is a no-op.
func (s *RedisStore) Release(ctx context.Context, identifier string) error {
	return s.client.Del(ctx, claimKeyPrefix+identifier).Err()
}
