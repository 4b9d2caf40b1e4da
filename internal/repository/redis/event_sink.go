package redis

import (
	"context"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
)

// StreamEventSink publishes drill-down events to Redis Streams. Every event
// goes to the events stream; leaf selections are also published to the
// leaf stream the report worker consumes.
type StreamEventSink struct {
	streams      repository.StreamRepository
	eventsStream string
	leafStream   string
	logger       *zap.Logger
}

func NewStreamEventSink(streams repository.StreamRepository, eventsStream, leafStream string, logger *zap.Logger) *StreamEventSink {
	if eventsStream == "" {
		eventsStream = domain.StreamDrillDownEvents
	}
	if leafStream == "" {
		leafStream = domain.StreamLeafSelected
	}
	return &StreamEventSink{
		streams:      streams,
		eventsStream: eventsStream,
		leafStream:   leafStream,
		logger:       logger.With(zap.String("component", "event_sink")),
	}
}

func (s *StreamEventSink) Publish(ctx context.Context, event domain.DrillDownEvent) error {
	if err := s.streams.PublishToStream(ctx, s.eventsStream, event); err != nil {
		return err
	}
	if event.Type != domain.EventLeafSelected {
		return nil
	}
	if err := s.streams.PublishToStream(ctx, s.leafStream, event); err != nil {
		return err
	}
	s.logger.Debug("Leaf selection published",
		zap.String("session_id", event.SessionID),
		zap.String("code", event.Code))
	return nil
}
