package publish_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
	"github.com/couchcryptid/collisions-dashboard/internal/publish"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	batches  [][]domain.CollisionRecord
	loadIDs  []string
	failures int // number of leading calls that fail
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, loadID string, records []domain.CollisionRecord) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.batches = append(m.batches, records)
	m.loadIDs = append(m.loadIDs, loadID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tableOf(n int) *domain.Table {
	t := &domain.Table{ID: "load-1"}
	for i := range n {
		t.Records = append(t.Records, domain.CollisionRecord{
			ID:       strconv.Itoa(i),
			DateTime: time.Date(2021, 9, 11, i%24, 0, 0, 0, time.UTC),
		})
	}
	return t
}

// --- tests ---

func TestPublisher_Batches(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := publish.New(ldr, discardLogger(), metrics, 4, 1)

	res, err := p.Publish(context.Background(), tableOf(10))
	require.NoError(t, err)

	assert.Equal(t, publish.Result{Batches: 3, Published: 10}, res)
	require.Len(t, ldr.batches, 3)
	assert.Len(t, ldr.batches[0], 4)
	assert.Len(t, ldr.batches[1], 4)
	assert.Len(t, ldr.batches[2], 2)
	assert.Equal(t, []string{"load-1", "load-1", "load-1"}, ldr.loadIDs)
	assert.InDelta(t, 10, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestPublisher_EmptyTable(t *testing.T) {
	ldr := &mockLoader{}
	p := publish.New(ldr, discardLogger(), observability.NewMetricsForTesting(), 4, 1)

	res, err := p.Publish(context.Background(), tableOf(0))
	require.NoError(t, err)
	assert.Zero(t, res.Published)
	assert.Zero(t, ldr.calls)
}

func TestPublisher_RetriesTransientFailure(t *testing.T) {
	ldr := &mockLoader{failures: 1}
	metrics := observability.NewMetricsForTesting()
	p := publish.New(ldr, discardLogger(), metrics, 10, 3)

	res, err := p.Publish(context.Background(), tableOf(5))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Published)
	assert.Equal(t, 2, ldr.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestPublisher_GivesUpAfterMaxAttempts(t *testing.T) {
	ldr := &mockLoader{failures: 100}
	p := publish.New(ldr, discardLogger(), observability.NewMetricsForTesting(), 10, 2)

	res, err := p.Publish(context.Background(), tableOf(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Contains(t, err.Error(), "records 0-4")
	assert.Zero(t, res.Published)
	assert.Equal(t, 2, ldr.calls)
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	ldr := &mockLoader{failures: 100}
	p := publish.New(ldr, discardLogger(), observability.NewMetricsForTesting(), 10, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := p.Publish(ctx, tableOf(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, ldr.calls, 10)
}
