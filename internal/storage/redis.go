package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eatbalance/web/internal"
)

const (
	sessionKeyPrefix = "eb:session:"
	handoffKeyPrefix = "eb:handoff:"
)

// RedisStorage relies on key TTLs for expiry, so the purge calls are no-ops.
type RedisStorage struct {
	client *redis.Client
	logger internal.Logger
}

func NewRedisStorage(ctx context.Context, addr, password string, db int, logger internal.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStorageWithClient(client, logger), nil
}

func NewRedisStorageWithClient(client *redis.Client, logger internal.Logger) *RedisStorage {
	return &RedisStorage{client: client, logger: logger}
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// --- SessionRepository ---
func (r *RedisStorage) GetSession(ctx context.Context, id string) (*internal.Session, error) {
	var s internal.Session
	if err := r.getJSON(ctx, sessionKeyPrefix+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, s *internal.Session) error {
	return r.setJSON(ctx, sessionKeyPrefix+s.ID, s, time.Until(s.ExpiresAt))
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id, handoffKeyPrefix+id).Err(); err != nil {
		r.logger.Errorf("failed to delete session %s: %v", id, err)
		return err
	}
	return nil
}

func (r *RedisStorage) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// --- HandoffRepository ---
func (r *RedisStorage) PutHandoff(ctx context.Context, h *internal.Handoff) error {
	return r.setJSON(ctx, handoffKeyPrefix+h.SessionID, h, time.Until(h.ExpiresAt))
}

func (r *RedisStorage) GetHandoff(ctx context.Context, sessionID string, now time.Time) (*internal.Handoff, error) {
	var h internal.Handoff
	if err := r.getJSON(ctx, handoffKeyPrefix+sessionID, &h); err != nil {
		return nil, err
	}
	if now.After(h.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (r *RedisStorage) PurgeHandoffs(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (r *RedisStorage) getJSON(ctx context.Context, key string, into interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		r.logger.Errorf("failed to get %s: %v", key, err)
		return err
	}
	return json.Unmarshal(data, into)
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Del(ctx, key).Err()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.Errorf("failed to set %s: %v", key, err)
		return err
	}
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*RedisStorage)(nil)
