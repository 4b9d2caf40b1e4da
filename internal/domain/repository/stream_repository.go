package repository

import (
	"context"

	"github.com/geo-drilldown/internal/domain"
)

// StreamRepository wraps Redis Streams with consumer groups.
type StreamRepository interface {
	// ConsumeStream reads messages for consumer until ctx is cancelled.
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// ReadBatch performs a single blocking group read of up to count messages.
	ReadBatch(ctx context.Context, stream, group, consumer string, count int64) ([]domain.StreamMessage, error)

	AckMessage(ctx context.Context, stream, group, messageID string) error

	// CreateConsumerGroup is idempotent.
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream marshals data to JSON under the "data" field.
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
