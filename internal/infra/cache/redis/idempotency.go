package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"stayride/internal/app/middleware"
)

// IdempotencyStore keeps command results in Redis with a TTL, as an
// alternative to the Mongo-backed store for deployments that already run
// Redis.
type IdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &IdempotencyStore{Client: client, TTL: ttl}
}

type record struct {
	Key        string    `json:"key"`
	Payload    []byte    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	data, err := s.Client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:        rec.Key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		OccurredAt: rec.OccurredAt,
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	data, err := json.Marshal(record{
		Key:        rec.Key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		OccurredAt: rec.OccurredAt,
	})
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(rec.Key), data, s.TTL).Err()
}

func (s *IdempotencyStore) key(key string) string {
	return "idemp:" + key
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
