package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

const (
	usesKeyPrefix = "grant:uses:"
	maxKeyPrefix  = "grant:max:"

	// consumeRetries bounds optimistic retries when concurrent consumers
	// trip the WATCH. Contention on a single grant is a handful of
	// analysis runs, not a hot loop, so a small budget suffices.
	consumeRetries = 5
)

// RedisUseStore is the production implementation for distributed
// deployments. ConsumeUse runs a WATCH transaction so the
// increment-with-precondition is atomic across instances.
type RedisUseStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisUseStore {
	return &RedisUseStore{client: client}
}

func (s *RedisUseStore) Register(ctx context.Context, requestID id.RequestID, maxUses int) error {
	created, err := s.client.SetNX(ctx, maxKeyPrefix+requestID.String(), maxUses, 0).Result()
	if err != nil {
		return fmt.Errorf("register grant: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	if err := s.client.Set(ctx, usesKeyPrefix+requestID.String(), 0, 0).Err(); err != nil {
		return fmt.Errorf("register grant uses: %w", err)
	}
	return nil
}

func (s *RedisUseStore) Uses(ctx context.Context, requestID id.RequestID) (int, error) {
	uses, err := s.client.Get(ctx, usesKeyPrefix+requestID.String()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read grant uses: %w", err)
	}
	return uses, nil
}

func (s *RedisUseStore) ConsumeUse(ctx context.Context, requestID id.RequestID) error {
	usesKey := usesKeyPrefix + requestID.String()
	maxKey := maxKeyPrefix + requestID.String()

	txf := func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, usesKey, maxKey).Result()
		if err != nil {
			return err
		}
		uses, ok1 := parseRedisInt(vals[0])
		maxUses, ok2 := parseRedisInt(vals[1])
		if !ok1 || !ok2 {
			return sentinel.ErrNotFound
		}
		if uses >= maxUses {
			return sentinel.ErrExhausted
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, usesKey)
			return nil
		})
		return err
	}

	for i := 0; i < consumeRetries; i++ {
		err := s.client.Watch(ctx, txf, usesKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func parseRedisInt(v any) (int, bool) {
	raw, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
