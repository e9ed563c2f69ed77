//go:build integration

package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/audit"
	"warden/internal/platform/kv"
	"warden/pkg/testutil/containers"
)

func TestTokenLifecycleOnRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.SharedRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	store := kv.NewRedis(rc.Client)
	trail := audit.NewTrail(store)
	svc, err := New(store, WithAuditor(trail))
	require.NoError(t, err)

	t.Run("revocation marker outlives the token", func(t *testing.T) {
		jti, err := svc.Issue(ctx, "alice", 10*time.Minute, []string{"read"})
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, jti, "compromised"))

		tokenTTL := rc.Client.PTTL(ctx, kv.TokenKey(jti)).Val()
		markerTTL := rc.Client.PTTL(ctx, kv.RevokedKey(jti)).Val()
		assert.GreaterOrEqual(t, markerTTL, tokenTTL)

		v, err := svc.Validate(ctx, jti)
		require.NoError(t, err)
		assert.Equal(t, ReasonNotFoundOrRevoked, v.Reason)
	})

	t.Run("record evicted by the store is rejected", func(t *testing.T) {
		jti, err := svc.Issue(ctx, "bob", time.Second, nil)
		require.NoError(t, err)

		v, err := svc.Validate(ctx, jti)
		require.NoError(t, err)
		require.True(t, v.Valid)

		require.Eventually(t, func() bool {
			v, err := svc.Validate(ctx, jti)
			return err == nil && v.Reason == ReasonNotFoundOrRevoked
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("audit trail records the lifecycle", func(t *testing.T) {
		events, err := trail.ReadLastForUser(ctx, "alice", 10)
		require.NoError(t, err)
		actions := make([]audit.Action, 0, len(events))
		for _, e := range events {
			actions = append(actions, e.Action)
		}
		assert.Equal(t, []audit.Action{
			audit.ActionTokenRevoked,
			audit.ActionTokenIssued,
		}, actions)
	})
}
