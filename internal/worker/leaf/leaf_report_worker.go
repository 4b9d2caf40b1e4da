package leaf

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/metrics"
	"github.com/geo-drilldown/internal/worker"
)

const (
	defaultBatchSize = 10
	errorBackoff     = time.Second
	publishBackoff   = 100 * time.Millisecond
)

// Config names the streams the worker reads and writes.
type Config struct {
	ConsumerGroup string
	LeafStream    string
	ReportStream  string
	BatchSize     int
	MaxRetries    int
}

// LeafReportWorker turns leaf_selected events into LeafReport entries.
type LeafReportWorker struct {
	*worker.BaseWorker
	streams      repository.StreamRepository
	cfg          Config
	consumerName string
	now          func() time.Time
}

func NewLeafReportWorker(streams repository.StreamRepository, cfg Config, logger *zap.Logger) *LeafReportWorker {
	if cfg.LeafStream == "" {
		cfg.LeafStream = domain.StreamLeafSelected
	}
	if cfg.ReportStream == "" {
		cfg.ReportStream = domain.StreamLeafReport
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	hostname, _ := os.Hostname()
	return &LeafReportWorker{
		BaseWorker:   worker.NewBaseWorker("leaf-report", cfg.ConsumerGroup, logger),
		streams:      streams,
		cfg:          cfg,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		now:          time.Now,
	}
}

// SetClock replaces the report timestamp source.
func (w *LeafReportWorker) SetClock(now func() time.Time) {
	w.now = now
}

func (w *LeafReportWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting leaf report worker",
		zap.String("stream", w.cfg.LeafStream),
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.cfg.BatchSize))

	if err := w.streams.CreateConsumerGroup(ctx, w.cfg.LeafStream, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		if _, err := w.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to process batch", zap.Error(err))
			if !w.Sleep(errorBackoff) {
				return nil
			}
		}
	}
}

// ProcessBatch handles one group read and returns the number of messages consumed.
// Every consumed message is acked, including malformed ones.
func (w *LeafReportWorker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.streams.ReadBatch(ctx, w.cfg.LeafStream, w.ConsumerGroup(), w.consumerName, int64(w.cfg.BatchSize))
	if err != nil {
		return 0, fmt.Errorf("failed to read batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger := w.Logger()
	logger.Debug("Processing batch", zap.Int("message_count", len(messages)))

	for _, msg := range messages {
		status := w.handle(ctx, msg)
		metrics.LeafReportsTotal.WithLabelValues(status).Inc()

		if err := w.streams.AckMessage(ctx, w.cfg.LeafStream, w.ConsumerGroup(), msg.ID); err != nil {
			// stays in the pending list for this consumer
			logger.Warn("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return len(messages), nil
}

func (w *LeafReportWorker) handle(ctx context.Context, msg domain.StreamMessage) string {
	logger := w.Logger().With(zap.String("message_id", msg.ID))

	var event domain.DrillDownEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		return "malformed"
	}
	report, err := BuildReport(event, w.now())
	if err != nil {
		logger.Warn("Event cannot be reported, skipping", zap.Error(err))
		return "malformed"
	}

	for attempt := 1; ; attempt++ {
		err = w.streams.PublishToStream(ctx, w.cfg.ReportStream, report)
		if err == nil {
			logger.Info("Leaf report published",
				zap.String("code", report.Code),
				zap.Float64("parent_sales_share", report.ParentSalesShare))
			return "published"
		}
		if attempt >= w.cfg.MaxRetries || ctx.Err() != nil {
			break
		}
		if !w.Sleep(time.Duration(attempt) * publishBackoff) {
			break
		}
	}

	logger.Error("Failed to publish leaf report",
		zap.String("code", report.Code),
		zap.Int("attempts", w.cfg.MaxRetries),
		zap.Error(err))
	return "failed"
}
