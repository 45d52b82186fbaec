package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "canguard/pkg/domain"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "canguard_session_revocation_check_duration_ms",
	Help:    "Latency of session revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedKeyPrefix = "srl:session:"

// RedisList is the production implementation for distributed deployments
// where instances share revocation state.
type RedisList struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke marks the session revoked with a TTL. Key existence is the marker.
func (l *RedisList) Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error {
	return l.client.Set(ctx, revokedKeyPrefix+sessionID.String(), "1", ttl).Err()
}

func (l *RedisList) IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	_, err := l.client.Get(ctx, revokedKeyPrefix+sessionID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
