package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
)

const (
	IdempotencyKeyPrefix = "idempotency:plants:"
	IdempotencyTTL       = 24 * time.Hour
	pendingMarker        = "pending"
)

// IdempotencyStore deduplicates create submissions that carry the same key.
type IdempotencyStore interface {
	// Begin claims key. It returns the plant id of a completed submission,
	// "" when the caller now owns the key, or apperrors.ErrConflict while
	// another submission with the key is still running.
	Begin(ctx context.Context, key string) (string, error)
	Complete(ctx context.Context, key, plantID string) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: IdempotencyTTL}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (string, error) {
	k := IdempotencyKeyPrefix + key
	claimed, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if claimed {
		return "", nil
	}
	val, err := s.client.Get(ctx, k).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; try once more.
		claimed, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return "", err
		}
		if claimed {
			return "", nil
		}
		return "", apperrors.ErrConflict
	}
	if err != nil {
		return "", err
	}
	if val == pendingMarker {
		return "", apperrors.ErrConflict
	}
	return val, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, plantID string) error {
	return s.client.Set(ctx, IdempotencyKeyPrefix+key, plantID, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, IdempotencyKeyPrefix+key).Err()
}

type idempotencyRecord struct {
	value   string
	expires time.Time
}

// MemoryIdempotencyStore is the single-process fallback when Redis is absent.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[string]idempotencyRecord),
		ttl:     IdempotencyTTL,
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Begin(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)
	if rec, ok := s.records[key]; ok {
		if rec.value == pendingMarker {
			return "", apperrors.ErrConflict
		}
		return rec.value, nil
	}
	s.records[key] = idempotencyRecord{value: pendingMarker, expires: now.Add(s.ttl)}
	return "", nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, plantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = idempotencyRecord{value: plantID, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// prune drops expired records. Callers hold s.mu.
func (s *MemoryIdempotencyStore) prune(now time.Time) {
	for k, rec := range s.records {
		if !now.Before(rec.expires) {
			delete(s.records, k)
		}
	}
}
