package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"arx/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:id:"
	entityKeyPrefix  = "session:entity:"
)

// RedisStore shares session state across server instances. Sessions expire
// via key TTL; the per-entity index is a set pruned lazily on read.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id uuid.UUID) string    { return sessionKeyPrefix + id.String() }
func entityKey(entity uuid.UUID) string { return entityKeyPrefix + entity.String() }

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), payload, ttl)
	pipe.SAdd(ctx, entityKey(s.Entity), s.ID.String())
	pipe.Expire(ctx, entityKey(s.Entity), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	s.LastSeen = at
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	// KEEPTTL preserves the original expiry.
	return r.client.Set(ctx, sessionKey(id), payload, redis.KeepTTL).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, entityKey(s.Entity), id.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) ListByEntity(ctx context.Context, entity uuid.UUID) ([]Session, error) {
	ids, err := r.client.SMembers(ctx, entityKey(entity)).Result()
	if err != nil {
		return nil, err
	}
	var out []Session
	var stale []any
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			stale = append(stale, raw)
			continue
		}
		s, err := r.Get(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			stale = append(stale, raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		r.client.SRem(ctx, entityKey(entity), stale...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
