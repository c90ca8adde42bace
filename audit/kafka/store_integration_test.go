//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/riffus/hyperswitch/audit"
	"github.com/riffus/hyperswitch/pkg/testutil/containers"
)

func TestStore_ProducesEvents(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	store, err := New([]string{rp.Broker}, WithTopic("eligibility.audit.test"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureTopic(ctx, 1, 1))
	// Idempotent on an existing topic.
	require.NoError(t, store.EnsureTopic(ctx, 1, 1))

	pub := audit.NewPublisher(store)
	defer pub.Close()

	eligible := false
	require.NoError(t, pub.Emit(ctx, audit.Event{
		MerchantID:  "m_shoes",
		ConnectorID: "stripe",
		Version:     3,
		Action:      audit.ActionEligibilityChecked,
		Eligible:    &eligible,
		Reasons:     []string{"payment_method=wallet requires country=US"},
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics("eligibility.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "m_shoes", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, audit.ActionEligibilityChecked, got.Action)
	assert.Equal(t, audit.CategoryDecision, got.Category)
	assert.Equal(t, "stripe", got.ConnectorID)
	require.NotNil(t, got.Eligible)
	assert.False(t, *got.Eligible)
	assert.False(t, got.Timestamp.IsZero())
}
