//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/collisions-dashboard/internal/config"
	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/loader"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
	"github.com/couchcryptid/collisions-dashboard/internal/publish"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTopic   = "test-collisions"
	fixturePath = "../loader/testdata/collisions.csv"
)

// publishedMessage holds a deserialized message read back from the topic.
type publishedMessage struct {
	Record  domain.CollisionRecord
	Key     string
	Time    time.Time
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.CollisionRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal message")

	return publishedMessage{Record: rec, Key: string(msg.Key), Time: msg.Time, Headers: headers}
}

// TestPublishTableToKafka loads the fixture CSV and exports it in small
// batches, then reads every message back in order.
func TestPublishTableToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	table, err := loader.NewFileSource(fixturePath).Load(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 10, table.Len())

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	res, err := publish.New(writer, discardLogger(), metrics, 4, 3).Publish(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, publish.Result{Batches: 3, Published: 10}, res)
	assert.InDelta(t, 10, testutil.ToFloat64(metrics.RecordsPublished), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PublishErrors), 0)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range table.Records {
		got := readPublished(ctx, t, consumer)

		assert.Equal(t, want.ID, got.Key, "message %d key", i)
		assert.Equal(t, want.ID, got.Record.ID)
		assert.True(t, want.DateTime.Equal(got.Record.DateTime), "message %d crash time", i)
		assert.True(t, want.DateTime.Equal(got.Time), "message %d timestamp", i)
		assert.Equal(t, want.Geo, got.Record.Geo)
		assert.Equal(t, want.OnStreetName, got.Record.OnStreetName)
		assert.Equal(t, want.Persons, got.Record.Persons)
		assert.Nil(t, got.Record.Values, "raw cells are not exported")

		assert.Equal(t, table.ID, got.Headers[kafka.HeaderLoadID])
		assert.Equal(t, want.Borough, got.Headers[kafka.HeaderBorough])
		assert.Equal(t, want.DateTime.Format(time.RFC3339), got.Headers[kafka.HeaderCrashTime])
	}
}

// TestPublishUnreachableBroker exhausts the retry budget and reports the
// failing batch without publishing anything.
func TestPublishUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	table, err := loader.NewFileSource(fixturePath).Load(ctx, 0)
	require.NoError(t, err)

	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	res, err := publish.New(writer, discardLogger(), metrics, 100, 2).Publish(ctx, table)
	require.Error(t, err)
	require.NoError(t, ctx.Err())
	assert.Contains(t, err.Error(), "publish records 0-9")
	assert.Zero(t, res.Published)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PublishErrors), 0)
}
