//go:build integration

package graphcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/riffus/hyperswitch/catalog"
	"github.com/riffus/hyperswitch/internal/platform/config"
	platformredis "github.com/riffus/hyperswitch/internal/platform/redis"
	"github.com/riffus/hyperswitch/kgraph"
	"github.com/riffus/hyperswitch/pkg/testutil/containers"
	"github.com/riffus/hyperswitch/ruleset"
)

func integrationConfig(merchant, connector string, version int64) *ruleset.Configuration {
	return &ruleset.Configuration{
		Identity: ruleset.Identity{MerchantID: merchant, ConnectorID: connector, Version: version},
		Rules: []ruleset.Rule{
			{
				Precondition: []ruleset.Value{{Pair: catalog.Pair{Category: "payment_method", Value: "wallet"}}},
				Consequence: ruleset.Consequence{
					Kind:   ruleset.Require,
					Values: []ruleset.Value{{Pair: catalog.Pair{Category: "country", Value: "US"}}},
				},
			},
		},
	}
}

// Two caches stand in for two service instances sharing one Redis. A publish
// from either side must drop the entry on both.
func TestInvalidationFanOut(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	compiler := kgraph.New()
	cacheA, err := New(compiler.Compile)
	require.NoError(t, err)
	cacheB, err := New(compiler.Compile)
	require.NoError(t, err)

	listenerA, err := NewListener(rc.Client, cacheA)
	require.NoError(t, err)
	listenerB, err := NewListener(rc.Client, cacheB)
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error { return listenerA.Run(ctx) })
	g.Go(func() error { return listenerB.Run(ctx) })

	require.Eventually(t, func() bool {
		counts, err := rc.Client.PubSubNumSub(ctx, DefaultChannel).Result()
		return err == nil && counts[DefaultChannel] >= 2
	}, 10*time.Second, 50*time.Millisecond, "listeners never subscribed")

	// The publishing side builds its client the way an embedder does, from
	// config through the platform constructor.
	rdb, err := platformredis.New(ctx, config.RedisConfig{
		URL:          rc.Addr,
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Health(ctx))

	inv, err := NewInvalidator(rdb.Client)
	require.NoError(t, err)

	t.Run("single identity", func(t *testing.T) {
		cfg := integrationConfig("m_shoes", "stripe", 1)
		_, err := cacheA.Get(ctx, cfg)
		require.NoError(t, err)
		_, err = cacheB.Get(ctx, cfg)
		require.NoError(t, err)

		require.NoError(t, inv.Invalidate(ctx, cfg.Identity))

		require.Eventually(t, func() bool {
			return cacheA.Stats().Entries == 0 && cacheB.Stats().Entries == 0
		}, 10*time.Second, 20*time.Millisecond)
	})

	t.Run("merchant wildcard", func(t *testing.T) {
		for _, cfg := range []*ruleset.Configuration{
			integrationConfig("m_shoes", "stripe", 1),
			integrationConfig("m_shoes", "adyen", 3),
			integrationConfig("m_books", "stripe", 1),
		} {
			_, err := cacheA.Get(ctx, cfg)
			require.NoError(t, err)
			_, err = cacheB.Get(ctx, cfg)
			require.NoError(t, err)
		}

		require.NoError(t, inv.InvalidateMerchant(ctx, "m_shoes"))

		require.Eventually(t, func() bool {
			return cacheA.Stats().Entries == 1 && cacheB.Stats().Entries == 1
		}, 10*time.Second, 20*time.Millisecond)

		cacheA.mu.RLock()
		_, survives := cacheA.entries[ruleset.Identity{MerchantID: "m_books", ConnectorID: "stripe", Version: 1}.Key()]
		cacheA.mu.RUnlock()
		require.True(t, survives)
	})

	cancel()
	err = g.Wait()
	require.True(t, err == nil || errors.Is(err, context.Canceled))
}
