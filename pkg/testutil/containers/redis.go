//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	Container testcontainers.Container
	Addr      string
	Client    *redis.Client
}

var (
	sharedOnce  sync.Once
	sharedRedis *RedisContainer
	sharedErr   error
)

// SharedRedis returns one Redis container per test binary, starting it on first
// use. Ryuk reaps it when the binary exits.
func SharedRedis(t *testing.T) *RedisContainer {
	t.Helper()
	sharedOnce.Do(func() {
		sharedRedis, sharedErr = startRedis(context.Background())
	})
	if sharedErr != nil {
		t.Fatalf("failed to start redis container: %v", sharedErr)
	}
	return sharedRedis
}

// NewRedisContainer starts a dedicated Redis container and terminates it when
// the test ends.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	rc, err := startRedis(context.Background())
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(context.Background())
	})
	return rc
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, err
	}

	addr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	// Parse the connection string (redis://host:port)
	opts, err := redis.ParseURL(addr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &RedisContainer{
		Container: container,
		Addr:      addr,
		Client:    client,
	}, nil
}

// FlushAll removes all keys from the Redis database.
// Use between tests to ensure isolation.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
