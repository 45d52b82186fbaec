package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"canguard/internal/identity"
	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

const (
	userKeyPrefix = "identity:user:"
	didKeyPrefix  = "identity:did:"
)

// RedisRecordStore persists identity records under two keys so both lookup
// directions stay O(1). SETNX on the user key enforces one-shot creation.
type RedisRecordStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

func (s *RedisRecordStore) Save(ctx context.Context, record identity.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode identity record: %w", err)
	}

	created, err := s.client.SetNX(ctx, userKeyPrefix+record.UserID.String(), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("save identity record: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	if err := s.client.Set(ctx, didKeyPrefix+record.DID.String(), raw, 0).Err(); err != nil {
		return fmt.Errorf("save identity did index: %w", err)
	}
	return nil
}

func (s *RedisRecordStore) FindByUser(ctx context.Context, userID id.UserID) (identity.Record, error) {
	return s.find(ctx, userKeyPrefix+userID.String())
}

func (s *RedisRecordStore) FindByDID(ctx context.Context, did id.DID) (identity.Record, error) {
	return s.find(ctx, didKeyPrefix+did.String())
}

func (s *RedisRecordStore) find(ctx context.Context, key string) (identity.Record, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return identity.Record{}, fmt.Errorf("find identity record: %w", err)
	}
	var record identity.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return identity.Record{}, fmt.Errorf("decode identity record: %w", err)
	}
	return record, nil
}
