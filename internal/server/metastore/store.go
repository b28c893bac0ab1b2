// Package metastore keeps per-object records in Redis. Each object key maps to
// a hash "file:<key>" with the fields isPublic ("0"/"1") and updatedAt.
package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/megavault/internal/common"
)

const (
	keyPrefix      = "file:"
	fieldIsPublic  = "isPublic"
	fieldUpdatedAt = "updatedAt"

	// TimeLayout is ISO-8601 with millisecond precision in UTC.
	TimeLayout = "2006-01-02T15:04:05.000Z"
)

// Record is the side-store view of one object. Found is false when no hash
// exists for the key.
type Record struct {
	IsPublic  bool
	UpdatedAt time.Time
	Found     bool
}

type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	SetPublic(ctx context.Context, key string, isPublic bool) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func recordKey(key string) string {
	return keyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	fields, err := s.client.HGetAll(ctx, recordKey(key)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("metastore get %q: %w: %w", key, common.ErrUpstream, err)
	}
	if len(fields) == 0 {
		return Record{}, nil
	}

	rec := Record{Found: true, IsPublic: fields[fieldIsPublic] == "1"}
	if v, ok := fields[fieldUpdatedAt]; ok {
		// an unparsable timestamp leaves UpdatedAt zero; visibility is still valid
		if t, err := time.Parse(TimeLayout, v); err == nil {
			rec.UpdatedAt = t
		}
	}

	return rec, nil
}

// SetPublic writes isPublic and a fresh updatedAt in one HSET.
func (s *RedisStore) SetPublic(ctx context.Context, key string, isPublic bool) error {
	flag := "0"
	if isPublic {
		flag = "1"
	}

	err := s.client.HSet(ctx, recordKey(key),
		fieldIsPublic, flag,
		fieldUpdatedAt, s.now().UTC().Format(TimeLayout),
	).Err()
	if err != nil {
		return fmt.Errorf("metastore set %q: %w: %w", key, common.ErrUpstream, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, recordKey(key)).Err(); err != nil {
		return fmt.Errorf("metastore delete %q: %w: %w", key, common.ErrUpstream, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
