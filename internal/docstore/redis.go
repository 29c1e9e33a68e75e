package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyDocuments = "amclient:documents"
	redisKeyLastSync  = "amclient:last_sync"
)

// RedisStore is the key-value adapter for deployments that already run
// Redis and want the cache shared across gateway replicas.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
	maxAge time.Duration
}

func NewRedisStore(addr, password string, log *slog.Logger, maxAge time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &RedisStore{client: client, log: log, maxAge: maxAge}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Store(ctx context.Context, docs []ReferenceDocument) error {
	if err := s.put(ctx, docs); err != nil {
		s.log.Warn("cache write rejected; truncating and retrying once", "err", err, "docs", len(docs))
		docs = TruncateNewest(docs, MaxDocuments)
		if err := s.put(ctx, docs); err != nil {
			s.log.Warn("cache write failed after truncation; dropping update", "err", err)
		}
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, docs []ReferenceDocument) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	// Both keys written in one round trip so the corpus and its sync
	// timestamp stay consistent.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKeyDocuments, data, 0)
	pipe.Set(ctx, redisKeyLastSync, time.Now().Format(time.RFC3339Nano), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Retrieve(ctx context.Context) ([]ReferenceDocument, error) {
	data, err := s.client.Get(ctx, redisKeyDocuments).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var docs []ReferenceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *RedisStore) LastSync(ctx context.Context) (*time.Time, error) {
	val, err := s.client.Get(ctx, redisKeyLastSync).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, redisKeyDocuments, redisKeyLastSync).Err()
}

func (s *RedisStore) Status(ctx context.Context) (CacheStatus, error) {
	docs, err := s.Retrieve(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	ts, err := s.LastSync(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	return buildStatus(len(docs), ts, s.maxAge, time.Now()), nil
}
