package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "canguard/pkg/domain"
)

const streamKeyPrefix = "datastream:user:"

// RedisIndexStore keeps each user's index as a Redis list, appended in
// capture order. Recommended for deployments with more than one instance.
type RedisIndexStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisIndexStore {
	return &RedisIndexStore{client: client}
}

func (s *RedisIndexStore) Append(ctx context.Context, userID id.UserID, cid id.CID) error {
	if err := s.client.RPush(ctx, streamKey(userID), cid.String()).Err(); err != nil {
		return fmt.Errorf("append to data stream: %w", err)
	}
	return nil
}

func (s *RedisIndexStore) ListByUser(ctx context.Context, userID id.UserID) ([]id.CID, error) {
	raw, err := s.client.LRange(ctx, streamKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list data stream: %w", err)
	}
	cids := make([]id.CID, 0, len(raw))
	for _, r := range raw {
		cids = append(cids, id.CID(r))
	}
	return cids, nil
}

func streamKey(userID id.UserID) string {
	return streamKeyPrefix + userID.String()
}
