// Package publish exports a loaded collisions table to a downstream sink in
// fixed-size batches.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
)

// BatchLoader writes multiple collision records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, loadID string, records []domain.CollisionRecord) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Publisher splits a table into batches and hands them to a BatchLoader,
// retrying failed batches with exponential backoff.
type Publisher struct {
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	maxAttempts int
}

// Result summarizes one export.
type Result struct {
	Batches   int
	Published int
}

// New creates a Publisher. batchSize and maxAttempts are clamped to at least 1.
func New(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize, maxAttempts int) *Publisher {
	return &Publisher{
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   max(batchSize, 1),
		maxAttempts: max(maxAttempts, 1),
	}
}

// Publish exports every record of t. It stops at the first batch that still
// fails after maxAttempts, returning the records published so far.
func (p *Publisher) Publish(ctx context.Context, t *domain.Table) (Result, error) {
	var res Result
	if t.Len() == 0 {
		p.logger.Info("nothing to publish", "table_id", t.ID)
		return res, nil
	}

	p.logger.Info("publish started", "table_id", t.ID, "records", t.Len(), "batch_size", p.batchSize)
	for start := 0; start < len(t.Records); start += p.batchSize {
		end := min(start+p.batchSize, len(t.Records))
		batch := t.Records[start:end]

		if err := p.loadWithRetry(ctx, t.ID, batch); err != nil {
			return res, fmt.Errorf("publish records %d-%d: %w", start, end-1, err)
		}
		res.Batches++
		res.Published += len(batch)
		p.metrics.RecordsPublished.Add(float64(len(batch)))
	}

	p.logger.Info("publish finished", "table_id", t.ID, "batches", res.Batches, "published", res.Published)
	return res, nil
}

func (p *Publisher) loadWithRetry(ctx context.Context, loadID string, batch []domain.CollisionRecord) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		start := time.Now()
		err = p.loader.LoadBatch(ctx, loadID, batch)
		if err == nil {
			p.metrics.PublishBatchDuration.Observe(time.Since(start).Seconds())
			return nil
		}
		p.metrics.PublishErrors.Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(batch), "attempt", attempt)
		if attempt == p.maxAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
