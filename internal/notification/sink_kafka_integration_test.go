//go:build integration

package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"reclaim/pkg/domain"
	"reclaim/pkg/testutil/containers"
)

func TestKafkaSinkDeliversRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t)

	sink, err := NewKafkaSink([]string{broker.Seed}, "reclaim.notifications.test")
	require.NoError(t, err)
	defer sink.Close()

	recipient := domain.NewUserID()
	n := &Notification{
		ID:        domain.NewNotificationID(),
		Recipient: recipient,
		Kind:      KindMatch,
		Payload:   Payload{Kind: KindMatch, ItemTitle: "red city bike"},
		DedupKey:  "key-1",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, sink.Deliver(ctx, n))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Seed),
		kgo.ConsumeTopics("reclaim.notifications.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, recipient.String(), string(records[0].Key),
		"records are keyed by recipient for per-recipient ordering")

	var payload struct {
		ID        string `json:"id"`
		Recipient string `json:"recipient"`
		Kind      string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	assert.Equal(t, n.ID.String(), payload.ID)
	assert.Equal(t, "match", payload.Kind)
}
