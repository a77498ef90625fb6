package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

// incrementExisting advances KEYS[1] only if it exists so a dropped counter is never
// silently recreated at 1
var incrementExisting = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCR", KEYS[1])
end
return false
`)

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// RedisCounterRepositoryImpl keeps counters as redis integer keys under a key prefix
type RedisCounterRepositoryImpl struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisCounterRepository(client redis.UniversalClient, keyPrefix string) CounterRepository {
	return &RedisCounterRepositoryImpl{client: client, keyPrefix: keyPrefix}
}

func (r *RedisCounterRepositoryImpl) key(name string) string {
	return r.keyPrefix + name
}

func (r *RedisCounterRepositoryImpl) Exists(ctx context.Context, name string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up counter %s: %w", name, err)
	}
	return n == 1, nil
}

func (r *RedisCounterRepositoryImpl) Create(ctx context.Context, name string, start int64) error {
	ok, err := r.client.SetNX(ctx, r.key(name), start-1, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	if !ok {
		return ErrCounterExists
	}
	return nil
}

func (r *RedisCounterRepositoryImpl) Increment(ctx context.Context, name string) (int64, error) {
	value, err := incrementExisting.Run(ctx, r.client, []string{r.key(name)}).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCounterNotFound
		}
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return value, nil
}

func (r *RedisCounterRepositoryImpl) List(ctx context.Context, prefix string) ([]string, error) {
	match := globEscaper.Replace(r.keyPrefix+prefix) + "*"

	var names []string
	iter := r.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), r.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}

	// SCAN may return a key more than once
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (r *RedisCounterRepositoryImpl) Drop(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to drop counter %s: %w", name, err)
	}
	return nil
}
