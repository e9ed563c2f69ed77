// Package kvtest runs the Redis store adapter against an in-process miniredis
// server for unit tests. Keys only expire when the test moves the server clock
// with FastForward, so token and activity tests control store time separately
// from request time.
package kvtest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"warden/internal/platform/kv"
)

// New starts a miniredis server scoped to t and returns a store connected to it.
func New(t testing.TB) (*kv.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kv.NewRedis(client), mr
}
