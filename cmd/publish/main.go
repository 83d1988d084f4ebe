// Command publish loads the collisions CSV and exports every retained record
// to Kafka as JSON, one message per collision keyed by its ID.
//
// Usage:
//
//	KAFKA_BROKERS=localhost:9092 go run ./cmd/publish -batch-size 500
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/collisions-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/collisions-dashboard/internal/config"
	"github.com/couchcryptid/collisions-dashboard/internal/loader"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
	"github.com/couchcryptid/collisions-dashboard/internal/publish"
)

func main() {
	batchSize := flag.Int("batch-size", 500, "records per Kafka write")
	maxAttempts := flag.Int("max-attempts", 5, "attempts per batch before giving up")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, cfg, logger, metrics, *batchSize, *maxAttempts); code != 0 {
		stop()
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, batchSize, maxAttempts int) int {
	table, err := loader.NewFileSource(cfg.CSVPath).Load(ctx, cfg.RowLimit)
	if err != nil {
		logger.Error("failed to load collisions", "path", cfg.CSVPath, "error", err)
		return 1
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	res, err := publish.New(writer, logger, metrics, batchSize, maxAttempts).Publish(ctx, table)
	if err != nil {
		logger.Error("publish failed", "published", res.Published, "error", err)
		return 1
	}

	logger.Info("publish complete",
		"topic", cfg.KafkaTopic,
		"table_id", table.ID,
		"batches", res.Batches,
		"published", res.Published,
		"rows_dropped", table.RowsDropped,
	)
	return 0
}
