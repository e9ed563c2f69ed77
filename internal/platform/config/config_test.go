package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 90*24*time.Hour, cfg.Activity.BucketTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_DEFAULT_TTL", "15m")
	t.Setenv("REDIS_CLUSTER_ADDRS", "r1:7000,r2:7001")
	t.Setenv("DELETION_BATCH_SIZE", "50")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Token.DefaultTTL)
	assert.Equal(t, []string{"r1:7000", "r2:7001"}, cfg.Redis.ClusterAddrs)
	assert.Equal(t, 50, cfg.Deletion.BatchSize)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("TOKEN_DEFAULT_TTL", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("non-positive batch size", func(t *testing.T) {
		t.Setenv("DELETION_BATCH_SIZE", "0")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
