// Package blob holds oversized project payloads between the client's upload
// and the sync call that ingests them.
package blob

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErr "github.com/qa-dashboard/engine/pkg/errors"
)

// Store is the object storage used for payload offloading.
type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// RedisStore keeps blobs as plain Redis strings under namespace:path.
type RedisStore struct {
	rdb       redis.UniversalClient
	namespace string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store writing into namespace. Blobs expire after
// ttl so abandoned uploads do not accumulate; zero keeps them forever.
func NewRedisStore(rdb redis.UniversalClient, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(path string) string {
	return s.namespace + ":" + strings.TrimPrefix(path, "/")
}

func (s *RedisStore) Put(ctx context.Context, path string, data []byte) error {
	if err := validPath(path); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(path), data, s.ttl).Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "store blob failed")
	}
	return nil
}

func (s *RedisStore) Download(ctx context.Context, path string) ([]byte, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	b, err := s.rdb.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErr.Newf(appErr.CodeNotFound, "blob %q not found", path)
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "download blob failed")
	}
	return b, nil
}

// Remove deletes the blob. Removing a missing blob is not an error.
func (s *RedisStore) Remove(ctx context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, s.key(path)).Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "remove blob failed")
	}
	return nil
}

func validPath(path string) error {
	p := strings.TrimPrefix(path, "/")
	if p == "" || strings.Contains(p, "..") {
		return appErr.Newf(appErr.CodeInvalid, "invalid storage path %q", path)
	}
	return nil
}
