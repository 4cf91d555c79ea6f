package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	goredislib "github.com/redis/go-redis/v9"
)

const (
	namespaceSeparator = ":"
	redisScanBatchSize = 1000
)

// RedisDB is a redis-backed ServiceStorage implementation. Namespacing is done
// by key prefix, e.g. namespace `issuer` and key `didURI` become `issuer:didURI`.
type RedisDB struct {
	db *goredislib.Client
}

func NewRedisDB(address, password string) (*RedisDB, error) {
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     address,
		Password: password,
	})
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, errors.Wrap(err, "instrumenting redis client")
	}
	return &RedisDB{db: client}, nil
}

func (r *RedisDB) Close() error {
	return r.db.Close()
}

func (r *RedisDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	return r.db.Set(ctx, getRedisKey(namespace, key), value, 0).Err()
}

func (r *RedisDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	v, err := r.db.Get(ctx, getRedisKey(namespace, key)).Bytes()
	if err == goredislib.Nil {
		return nil, nil
	}
	return v, err
}

func (r *RedisDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	prefix := namespace + namespaceSeparator
	result := make(map[string][]byte)

	var cursor uint64
	for {
		keys, next, err := r.db.Scan(ctx, cursor, prefix+"*", redisScanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			v, err := r.db.Get(ctx, k).Bytes()
			if err != nil {
				return nil, err
			}
			result[strings.TrimPrefix(k, prefix)] = v
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return result, nil
}

func (r *RedisDB) Exists(ctx context.Context, namespace, key string) (bool, error) {
	n, err := r.db.Exists(ctx, getRedisKey(namespace, key)).Result()
	return n > 0, err
}

func (r *RedisDB) Delete(ctx context.Context, namespace, key string) error {
	return r.db.Del(ctx, getRedisKey(namespace, key)).Err()
}

func getRedisKey(namespace, key string) string {
	return namespace + namespaceSeparator + key
}
