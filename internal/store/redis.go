package store

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisDocs stores one string key per collection and uses WATCH/MULTI for
// atomic updates.
type redisDocs struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

func NewRedisBackend(client *redis.Client, prefix string, maxRetries int) Backend {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &docBackend{docs: &redisDocs{client: client, prefix: prefix, maxRetries: maxRetries}}
}

func (r *redisDocs) key(name string) string {
	return r.prefix + name
}

func (r *redisDocs) load(ctx context.Context, name string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (r *redisDocs) modify(ctx context.Context, name string, fn UpdateFunc) error {
	key := r.key(name)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < r.maxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (r *redisDocs) names(ctx context.Context) ([]string, error) {
	var out []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	return out, iter.Err()
}

func (r *redisDocs) close() error {
	return r.client.Close()
}
