//go:build integration

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
	"canguard/pkg/testutil/containers"
)

type RedisUseStoreIntegrationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisUseStore
}

func TestRedisUseStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RedisUseStoreIntegrationSuite))
}

func (s *RedisUseStoreIntegrationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedis(s.redis.Client)
}

func (s *RedisUseStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisUseStoreIntegrationSuite) TestRegister() {
	ctx := context.Background()
	requestID := id.NewRequestID()

	s.Require().NoError(s.store.Register(ctx, requestID, 3))
	s.ErrorIs(s.store.Register(ctx, requestID, 3), sentinel.ErrConflict)

	uses, err := s.store.Uses(ctx, requestID)
	s.Require().NoError(err)
	s.Equal(0, uses)
}

func (s *RedisUseStoreIntegrationSuite) TestConsumeUse() {
	ctx := context.Background()

	s.Run("unknown grant", func() {
		s.ErrorIs(s.store.ConsumeUse(ctx, id.NewRequestID()), sentinel.ErrNotFound)
	})

	s.Run("exhaustion at the budget", func() {
		requestID := id.NewRequestID()
		s.Require().NoError(s.store.Register(ctx, requestID, 2))

		s.NoError(s.store.ConsumeUse(ctx, requestID))
		s.NoError(s.store.ConsumeUse(ctx, requestID))
		s.ErrorIs(s.store.ConsumeUse(ctx, requestID), sentinel.ErrExhausted)
	})

	s.Run("single-use grant under concurrent consumers", func() {
		requestID := id.NewRequestID()
		s.Require().NoError(s.store.Register(ctx, requestID, 1))

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.store.ConsumeUse(ctx, requestID)
			}()
		}
		wg.Wait()
		close(results)

		var succeeded int
		for err := range results {
			if err == nil {
				succeeded++
			}
		}
		s.Equal(1, succeeded)

		uses, err := s.store.Uses(ctx, requestID)
		s.Require().NoError(err)
		s.Equal(1, uses)
	})
}
