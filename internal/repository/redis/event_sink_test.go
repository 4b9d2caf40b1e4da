package redis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	redisRepo "github.com/geo-drilldown/internal/repository/redis"
)

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer)
	return args.Get(0).(<-chan domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) ReadBatch(ctx context.Context, stream, group, consumer string, count int64) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, count)
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	return m.Called(ctx, stream, group, messageID).Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	return m.Called(ctx, stream, group).Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	return m.Called(ctx, stream, data).Error(0)
}

func TestStreamEventSink_Publish(t *testing.T) {
	t.Run("level change goes to events stream only", func(t *testing.T) {
		streams := new(MockStreamRepository)
		sink := redisRepo.NewStreamEventSink(streams, "", "", zap.NewNop())
		event := domain.DrillDownEvent{Type: domain.EventLevelChanged, Level: domain.LevelProvince}

		streams.On("PublishToStream", mock.Anything, domain.StreamDrillDownEvents, event).Return(nil).Once()

		assert.NoError(t, sink.Publish(context.Background(), event))
		streams.AssertExpectations(t)
		streams.AssertNotCalled(t, "PublishToStream", mock.Anything, domain.StreamLeafSelected, mock.Anything)
	})

	t.Run("leaf selection fans out", func(t *testing.T) {
		streams := new(MockStreamRepository)
		sink := redisRepo.NewStreamEventSink(streams, "events", "leaf", zap.NewNop())
		event := domain.DrillDownEvent{Type: domain.EventLeafSelected, Code: "NCR-MNL-M1"}

		streams.On("PublishToStream", mock.Anything, "events", event).Return(nil).Once()
		streams.On("PublishToStream", mock.Anything, "leaf", event).Return(nil).Once()

		assert.NoError(t, sink.Publish(context.Background(), event))
		streams.AssertExpectations(t)
	})

	t.Run("events stream failure stops fan out", func(t *testing.T) {
		streams := new(MockStreamRepository)
		sink := redisRepo.NewStreamEventSink(streams, "events", "leaf", zap.NewNop())
		event := domain.DrillDownEvent{Type: domain.EventLeafSelected}
		boom := errors.New("redis down")

		streams.On("PublishToStream", mock.Anything, "events", event).Return(boom).Once()

		assert.ErrorIs(t, sink.Publish(context.Background(), event), boom)
		streams.AssertNumberOfCalls(t, "PublishToStream", 1)
	})
}
