package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"canguard/internal/session"
	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:id:"
	deviceKeyPrefix  = "session:device:"

	// recordGrace keeps an expired record readable for a while so status
	// queries can report it as expired instead of unknown.
	recordGrace = 24 * time.Hour

	updateRetries = 5
)

// RedisSessionStore shares session state across instances. Updates run
// inside a WATCH transaction keyed on the record, so the version check and
// the write are atomic.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(sessionID id.SessionID) string { return sessionKeyPrefix + sessionID.String() }

func deviceIndexKey(userID id.UserID, fingerprint string) string {
	return deviceKeyPrefix + userID.String() + ":" + fingerprint
}

func (s *RedisSessionStore) Create(ctx context.Context, record session.UserSession) error {
	indexKey := deviceIndexKey(record.UserID, record.DeviceFingerprint)
	if old, err := s.client.Get(ctx, indexKey).Result(); err == nil {
		s.client.Del(ctx, sessionKeyPrefix+old)
	}

	record.Version = 1
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(record.ExpiresAt) + recordGrace

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(record.SessionID), raw, ttl)
	pipe.Set(ctx, indexKey, record.SessionID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Update(ctx context.Context, record session.UserSession) error {
	key := sessionKey(record.SessionID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored session.UserSession
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if stored.Version != record.Version {
			return sentinel.ErrConflict
		}

		next := record
		next.Version++
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, time.Until(next.ExpiresAt)+recordGrace)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func (s *RedisSessionStore) FindByID(ctx context.Context, sessionID id.SessionID) (session.UserSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return session.UserSession{}, sentinel.ErrNotFound
	}
	if err != nil {
		return session.UserSession{}, fmt.Errorf("fetch session: %w", err)
	}
	var record session.UserSession
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return session.UserSession{}, fmt.Errorf("decode session: %w", err)
	}
	return record, nil
}

func (s *RedisSessionStore) FindByUserDevice(ctx context.Context, userID id.UserID, deviceFingerprint string) (session.UserSession, error) {
	raw, err := s.client.Get(ctx, deviceIndexKey(userID, deviceFingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return session.UserSession{}, sentinel.ErrNotFound
	}
	if err != nil {
		return session.UserSession{}, fmt.Errorf("resolve device session: %w", err)
	}
	sessionID, err := id.ParseSessionID(raw)
	if err != nil {
		return session.UserSession{}, fmt.Errorf("resolve device session: %w", err)
	}
	return s.FindByID(ctx, sessionID)
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	record, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.Del(ctx, deviceIndexKey(record.UserID, record.DeviceFingerprint))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
