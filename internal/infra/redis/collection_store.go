package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CollectionStore keeps local collections in a device-local Redis, one string
// key per collection: quiz:local:{name}.
// Calls are synchronous from the caller's view; each one is bounded by timeout.
type CollectionStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewCollectionStore keeps each collection as one Redis string without expiry.
func NewCollectionStore(client *redis.Client, timeout time.Duration) *CollectionStore {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &CollectionStore{
		client:  client,
		timeout: timeout,
	}
}

func (s *CollectionStore) Load(name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *CollectionStore) Save(name string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// no expiry: local collections are durable
	return s.client.Set(ctx, s.key(name), data, 0).Err()
}

func (s *CollectionStore) Delete(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.key(name)).Err()
}

func (s *CollectionStore) key(name string) string {
	return "quiz:local:" + name
}
