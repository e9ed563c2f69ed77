package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"warden/pkg/platform/sentinel"
)

// RedisStore is a Redis-backed Store. It accepts any UniversalClient so the same
// code runs against a single node or a cluster; every multi-command unit it issues
// touches exactly one key and therefore one hash slot.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed by
// the caller.
func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", classify("get "+key, err)
	}
	return val, nil
}

// GetWithTTL reads GET and PTTL inside one MULTI/EXEC so the value and its
// lifetime describe the same instant.
func (s *RedisStore) GetWithTTL(ctx context.Context, key string) (string, time.Duration, error) {
	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", 0, classify("get with ttl "+key, err)
	}
	val, err := getCmd.Result()
	if err != nil {
		return "", 0, classify("get with ttl "+key, err)
	}
	ttl := ttlCmd.Val()
	if ttl < 0 {
		// -1: no expiry, -2: vanished between commands (cannot happen inside MULTI)
		ttl = 0
	}
	return val, ttl, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return classify("set "+key, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, classify("exists "+key, err)
	}
	return n > 0, nil
}

// Delete issues one DEL per key in a pipeline; a multi-key DEL would fail with
// CROSSSLOT on a cluster.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return classify("delete "+strings.Join(keys, ","), err)
	}
	return nil
}

func (s *RedisStore) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, key, toAny(members)...).Err(); err != nil {
		return classify("sadd "+key, err)
	}
	return nil
}

func (s *RedisStore) SetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, key, toAny(members)...).Err(); err != nil {
		return classify("srem "+key, err)
	}
	return nil
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, classify("smembers "+key, err)
	}
	return members, nil
}

func (s *RedisStore) SetIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, classify("sismember "+key, err)
	}
	return ok, nil
}

func (s *RedisStore) ListAppend(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.client.RPush(ctx, key, toAny(values)...).Err(); err != nil {
		return classify("rpush "+key, err)
	}
	return nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, classify("lrange "+key, err)
	}
	return values, nil
}

func (s *RedisStore) LogAppend(ctx context.Context, key string, fields map[string]string) (string, error) {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: key, Values: values}).Result()
	if err != nil {
		return "", classify("xadd "+key, err)
	}
	return id, nil
}

func (s *RedisStore) LogRange(ctx context.Context, key, after string, count int64) ([]LogEntry, error) {
	start := "-"
	if after != "" {
		start = "(" + after
	}
	var (
		msgs []redis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = s.client.XRangeN(ctx, key, start, "+", count).Result()
	} else {
		msgs, err = s.client.XRange(ctx, key, start, "+").Result()
	}
	if err != nil {
		return nil, classify("xrange "+key, err)
	}
	return toEntries(msgs), nil
}

func (s *RedisStore) LogRevRange(ctx context.Context, key string, count int64) ([]LogEntry, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = s.client.XRevRangeN(ctx, key, "+", "-", count).Result()
	} else {
		msgs, err = s.client.XRevRange(ctx, key, "+", "-").Result()
	}
	if err != nil {
		return nil, classify("xrevrange "+key, err)
	}
	return toEntries(msgs), nil
}

// CardinalityAdd runs PFADD and EXPIRE in one MULTI/EXEC.
func (s *RedisStore) CardinalityAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.PFAdd(ctx, key, toAny(members)...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return classify("pfadd "+key, err)
	}
	return nil
}

func (s *RedisStore) CardinalityCount(ctx context.Context, key string) (int64, error) {
	n, err := s.client.PFCount(ctx, key).Result()
	if err != nil {
		return 0, classify("pfcount "+key, err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify("ping", err)
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	case strings.HasPrefix(err.Error(), "WRONGTYPE"):
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrMalformed, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func toEntries(msgs []redis.XMessage) []LogEntry {
	entries := make([]LogEntry, 0, len(msgs))
	for _, msg := range msgs {
		fields := make(map[string]string, len(msg.Values))
		for k, v := range msg.Values {
			switch val := v.(type) {
			case string:
				fields[k] = val
			default:
				fields[k] = fmt.Sprint(val)
			}
		}
		entries = append(entries, LogEntry{ID: msg.ID, Fields: fields})
	}
	return entries
}
