package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound indicates no stored summary exists for a batch run id.
var ErrRunNotFound = errors.New("batch run not found")

// BatchRunStore keeps batch run summaries in Redis as JSON blobs with a TTL.
type BatchRunStore struct {
	redis *Redis
	ttl   time.Duration
}

// NewBatchRunStore creates the store.
func NewBatchRunStore(r *Redis, ttl time.Duration) *BatchRunStore {
	return &BatchRunStore{redis: r, ttl: ttl}
}

func (s *BatchRunStore) key(runID string) string {
	return "batch:run:" + runID
}

// Save persists an encoded run summary under its id.
func (s *BatchRunStore) Save(ctx context.Context, runID string, payload []byte) error {
	if s.redis == nil || s.redis.Client == nil {
		return errors.New("redis client not configured")
	}
	return s.redis.Client.Set(ctx, s.key(runID), payload, s.ttl).Err()
}

// Get returns the encoded run summary for an id.
func (s *BatchRunStore) Get(ctx context.Context, runID string) ([]byte, error) {
	if s.redis == nil || s.redis.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	payload, err := s.redis.Client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
