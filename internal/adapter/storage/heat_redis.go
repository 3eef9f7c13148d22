// internal/adapter/storage/heat_redis.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rendezvous/internal/domain/sentiment"
)

const (
	heatKeyPrefix  = "heat:bucket:"
	heatIndexKey   = "heat:index"
	heatMaxRetries = 16
)

// RedisHeatStore implements storage for heat buckets in Redis. Each bucket
// is a hash holding its stored value and update time in unix milliseconds;
// a lexically ordered sorted set indexes bucket names for prefix listing.
type RedisHeatStore struct {
	client *redis.Client
}

// NewRedisHeatStore connects to redisURL and creates a heat store
func NewRedisHeatStore(redisURL string) (*RedisHeatStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisHeatStore{client: client}, nil
}

// NewRedisHeatStoreWithClient creates a heat store from an existing client
func NewRedisHeatStoreWithClient(client *redis.Client) *RedisHeatStore {
	return &RedisHeatStore{client: client}
}

func heatKey(bucket string) string {
	return heatKeyPrefix + bucket
}

// UpdateScore applies fn to a bucket with optimistic locking, retrying when
// another writer changes the bucket between read and write
func (s *RedisHeatStore) UpdateScore(ctx context.Context, bucket string, fn func(sentiment.Score) sentiment.Score) (sentiment.Score, error) {
	key := heatKey(bucket)
	var next sentiment.Score

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		current, err := decodeScore(bucket, fields)
		if err != nil {
			return err
		}
		if current == nil {
			current = &sentiment.Score{Bucket: bucket}
		}

		next = fn(*current)
		next.Bucket = bucket

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"stored", strconv.FormatFloat(next.Stored, 'g', -1, 64),
				"updated", strconv.FormatInt(next.UpdatedAt.UnixMilli(), 10),
			)
			pipe.ZAdd(ctx, heatIndexKey, redis.Z{Score: 0, Member: bucket})
			return nil
		})
		return err
	}

	for i := 0; i < heatMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return sentiment.Score{}, fmt.Errorf("error updating heat bucket: %w", err)
	}
	return sentiment.Score{}, fmt.Errorf("error updating heat bucket %s: too much contention", bucket)
}

// GetScore retrieves a bucket
func (s *RedisHeatStore) GetScore(ctx context.Context, bucket string) (*sentiment.Score, error) {
	fields, err := s.client.HGetAll(ctx, heatKey(bucket)).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting heat bucket: %w", err)
	}
	return decodeScore(bucket, fields)
}

// ListScores lists buckets by key prefix
func (s *RedisHeatStore) ListScores(ctx context.Context, prefix string) ([]sentiment.Score, error) {
	buckets, err := s.client.ZRangeByLex(ctx, heatIndexKey, &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "[" + prefix + "\xff",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing heat buckets: %w", err)
	}
	if len(buckets) == 0 {
		return []sentiment.Score{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(buckets))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, b := range buckets {
			cmds[i] = pipe.HGetAll(ctx, heatKey(b))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading heat buckets: %w", err)
	}

	scores := make([]sentiment.Score, 0, len(buckets))
	for i, b := range buckets {
		sc, err := decodeScore(b, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		if sc != nil {
			scores = append(scores, *sc)
		}
	}
	return scores, nil
}

// DeleteScore deletes a bucket
func (s *RedisHeatStore) DeleteScore(ctx context.Context, bucket string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, heatKey(bucket))
		pipe.ZRem(ctx, heatIndexKey, bucket)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting heat bucket: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisHeatStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisHeatStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeScore(bucket string, fields map[string]string) (*sentiment.Score, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	stored, err := strconv.ParseFloat(fields["stored"], 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing heat bucket %s: %w", bucket, err)
	}
	sc := &sentiment.Score{Bucket: bucket, Stored: stored}

	if raw := fields["updated"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing heat bucket %s: %w", bucket, err)
		}
		if ms > 0 {
			sc.UpdatedAt = time.UnixMilli(ms)
		}
	}
	return sc, nil
}
