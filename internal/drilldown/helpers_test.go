package drilldown_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/drilldown"
	"github.com/geo-drilldown/internal/geostore"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/synthetic"
)

// MockGeoSource is a testify mock of repository.GeoSourceRepository.
type MockGeoSource struct {
	mock.Mock
}

func (m *MockGeoSource) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	args := m.Called(ctx, level, parentCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GeoFeature), args.Error(1)
}

// funcSource delegates to fetch and counts calls per parent.
type funcSource struct {
	mu    sync.Mutex
	calls map[string]int
	fetch func(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error)
}

func newFuncSource(fetch func(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error)) *funcSource {
	return &funcSource{calls: make(map[string]int), fetch: fetch}
}

func (s *funcSource) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	s.mu.Lock()
	s.calls[parentCode]++
	s.mu.Unlock()
	return s.fetch(ctx, level, parentCode)
}

func (s *funcSource) Calls(parentCode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[parentCode]
}

func notLoaded(context.Context, domain.AdminLevel, string) ([]domain.GeoFeature, error) {
	return nil, apperrors.ErrNotLoaded
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.DrillDownEvent
	fail   atomic.Bool
}

func (s *recordingSink) Publish(_ context.Context, e domain.DrillDownEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if s.fail.Load() {
		return apperrors.ErrCacheError
	}
	return nil
}

func (s *recordingSink) Types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func (s *recordingSink) Last() domain.DrillDownEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func testRegions() []domain.GeoFeature {
	return []domain.GeoFeature{
		{Code: "NCR", Name: "National Capital Region", Metrics: domain.Metrics{Sales: 9447000, Stores: 45, Transactions: 15000, Growth: 12.5}},
		{Code: "III", Name: "Region III - Central Luzon", Metrics: domain.Metrics{Sales: 1985000, Stores: 32, Transactions: 12000, Growth: 15.3}},
		{Code: "XIII", Name: "Region XIII - Caraga", Metrics: domain.Metrics{Sales: 432000, Stores: 5, Transactions: 1650, Growth: 3.8}},
	}
}

type harness struct {
	store      *geostore.Store
	source     *funcSource
	sink       *recordingSink
	controller *drilldown.Controller
}

func newHarness(t *testing.T, source *funcSource) *harness {
	t.Helper()

	logger := zap.NewNop()
	store := geostore.New(logger)
	require.NoError(t, store.PutFeatures(domain.LevelRegion, "", testRegions()))

	synth := synthetic.New(synthetic.DefaultNameTables(), synthetic.Config{}, logger)
	loader := drilldown.NewFeatureLoader(store, source, synth, logger)
	sink := &recordingSink{}

	controller, err := drilldown.New(store, loader, colorscale.NewCache(), sink, drilldown.Config{
		SessionID: "test-session",
		Metric:    domain.MetricSales,
	}, logger)
	require.NoError(t, err)

	return &harness{store: store, source: source, sink: sink, controller: controller}
}

func (h *harness) await(t *testing.T, p *drilldown.Pending, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))
}
