package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/repository/static"
	"github.com/geo-drilldown/internal/synthetic"
	"github.com/geo-drilldown/internal/usecase"
	"github.com/geo-drilldown/internal/usecase/dto"
)

// flakySource wraps the static dataset and can fail selected scopes.
type flakySource struct {
	inner  repository.GeoSourceRepository
	mu     sync.Mutex
	failOn map[string]error
}

func (s *flakySource) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	s.mu.Lock()
	err := s.failOn[parentCode]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.FetchFeatures(ctx, level, parentCode)
}

func (s *flakySource) heal(parent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failOn, parent)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.DrillDownEvent
}

func (r *recordingSink) Publish(_ context.Context, e domain.DrillDownEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newUseCase(t *testing.T) (*usecase.DrillDownUseCase, *flakySource, *recordingSink) {
	t.Helper()
	ds, err := static.LoadDataset()
	require.NoError(t, err)

	src := &flakySource{inner: static.NewSource(ds, zap.NewNop()), failOn: map[string]error{}}
	sink := &recordingSink{}
	synth := synthetic.New(synthetic.DefaultNameTables(), synthetic.Config{}, zap.NewNop())
	uc := usecase.NewDrillDownUseCase(src, synth, sink, usecase.Config{
		FetchTimeout:   time.Second,
		SessionIdleTTL: time.Minute,
		LegendSteps:    5,
		RootLabel:      "Philippines",
	}, zap.NewNop())
	return uc, src, sink
}

func TestDrillDownUseCase_CreateSession(t *testing.T) {
	uc, _, _ := newUseCase(t)

	created, err := uc.CreateSession(context.Background(), dto.CreateSessionRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)

	frame := created.Frame
	assert.Equal(t, domain.LevelRegion, frame.Level)
	assert.Equal(t, domain.MetricSales, frame.Metric)
	assert.Len(t, frame.Features, 17)
	assert.Len(t, frame.Legend, 5)
	assert.False(t, frame.Loading)
	assert.Nil(t, frame.Error)
	require.Len(t, frame.Breadcrumbs, 1)
	assert.Equal(t, "Philippines", frame.Breadcrumbs[0].Label)
	assert.True(t, frame.Breadcrumbs[0].Active)

	for _, f := range frame.Features {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, f.Color)
		assert.NotEmpty(t, f.Label)
	}
	assert.Equal(t, 1, uc.SessionCount())

	_, err = uc.CreateSession(context.Background(), dto.CreateSessionRequest{Metric: "revenue"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidMetric))
}

func TestDrillDownUseCase_DrillToLeaf(t *testing.T) {
	uc, _, sink := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{Metric: "growth"})
	require.NoError(t, err)
	id := created.SessionID

	frame, err := uc.Select(ctx, id, dto.SelectRequest{Code: "NCR", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProvince, frame.Level)
	assert.Equal(t, "province:NCR", frame.Scope)
	assert.Len(t, frame.Features, 5)
	assert.Len(t, frame.Breadcrumbs, 2)

	frame, err = uc.Select(ctx, id, dto.SelectRequest{Code: "NCR-MNL", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelMunicipality, frame.Level)
	assert.Len(t, frame.Features, 7)
	assert.Equal(t, "Binondo", frame.Features[0].Name)

	frame, err = uc.Select(ctx, id, dto.SelectRequest{Code: "MNL-BIN", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelMunicipality, frame.Level)
	require.NotNil(t, frame.Path.Municipality)
	assert.Equal(t, "MNL-BIN", frame.Path.Municipality.Code)
	assert.True(t, frame.Features[0].Selected)
	assert.False(t, frame.Features[1].Selected)
	assert.Contains(t, sink.types(), domain.EventLeafSelected)

	frame, err = uc.Navigate(ctx, id, dto.NavigateRequest{Level: "provinces", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProvince, frame.Level)
	assert.Nil(t, frame.Path.Province)

	frame, err = uc.Reset(ctx, id, dto.WaitRequest{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelRegion, frame.Level)
	assert.Equal(t, domain.MetricGrowth, frame.Metric)
}

func TestDrillDownUseCase_SyntheticFallback(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)

	frame, err := uc.Select(ctx, created.SessionID, dto.SelectRequest{Code: "XI", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProvince, frame.Level)
	assert.NotEmpty(t, frame.Features)
	assert.Equal(t, "XI-P1", frame.Features[0].Code)
}

func TestDrillDownUseCase_FailureAndRetry(t *testing.T) {
	uc, src, sink := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.SessionID

	src.failOn["III"] = errors.New("connection reset")

	frame, err := uc.Select(ctx, id, dto.SelectRequest{Code: "III", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelRegion, frame.Level)
	assert.False(t, frame.Loading)
	require.NotNil(t, frame.Error)
	assert.Equal(t, apperrors.CodeFetchFailed, frame.Error.Code)
	assert.Contains(t, sink.types(), domain.EventLoadFailed)

	src.heal("III")
	frame, err = uc.Retry(ctx, id, dto.WaitRequest{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProvince, frame.Level)
	assert.Nil(t, frame.Error)
	assert.Len(t, frame.Features, 6)
}

func TestDrillDownUseCase_HoverMetricLegend(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.SessionID

	frame, err := uc.SetHover(id, dto.HoverRequest{Code: "NCR"})
	require.NoError(t, err)
	assert.Equal(t, "NCR", frame.HoveredCode)
	assert.True(t, frame.Features[0].Hovered)

	_, err = uc.SetHover(id, dto.HoverRequest{Code: "NCR-MNL"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	frame, err = uc.SetMetric(id, dto.MetricRequest{Metric: "stores"})
	require.NoError(t, err)
	assert.Equal(t, domain.MetricStores, frame.Metric)

	_, err = uc.SetMetric(id, dto.MetricRequest{Metric: "margin"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidMetric))

	legend, err := uc.Legend(id, dto.LegendRequest{Steps: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.MetricStores, legend.Metric)
	require.Len(t, legend.Steps, 3)
	assert.Equal(t, legend.Scale.Max, legend.Steps[2].Value)
}

func TestDrillDownUseCase_SearchAndJump(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.SessionID

	_, err = uc.Select(ctx, id, dto.SelectRequest{Code: "NCR", Wait: true})
	require.NoError(t, err)

	res, err := uc.Search(id, dto.SearchRequest{Query: "manila"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, res.Total, len(res.Results))

	var hit *domain.SearchResult
	for i := range res.Results {
		if res.Results[i].Code == "NCR-MNL" {
			hit = &res.Results[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, []string{"NCR"}, hit.ParentChain)

	_, err = uc.Reset(ctx, id, dto.WaitRequest{Wait: true})
	require.NoError(t, err)

	frame, err := uc.Jump(ctx, id, dto.JumpRequest{Level: "province", Code: "NCR-MNL", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelMunicipality, frame.Level)
	require.NotNil(t, frame.Path.Province)
	assert.Equal(t, "NCR-MNL", frame.Path.Province.Code)

	_, err = uc.Jump(ctx, id, dto.JumpRequest{Level: "barangay", Code: "X"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidLevel))
}

func TestDrillDownUseCase_SessionLifecycle(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uc.SetClock(func() time.Time { return now })

	a, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	b, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)

	now = now.Add(45 * time.Second)
	_, err = uc.GetFrame(b.SessionID)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, uc.EvictIdle())

	_, err = uc.GetFrame(a.SessionID)
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
	_, err = uc.GetFrame(b.SessionID)
	assert.NoError(t, err)

	require.NoError(t, uc.DeleteSession(b.SessionID))
	assert.True(t, errors.Is(uc.DeleteSession(b.SessionID), apperrors.ErrSessionNotFound))
	assert.Equal(t, 0, uc.SessionCount())
}

func TestDrillDownUseCase_GeoData(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     dto.GeoDataRequest
		want    int
		wantErr *apperrors.AppError
	}{
		{name: "regions", req: dto.GeoDataRequest{Level: "regions"}, want: 17},
		{name: "provinces of NCR", req: dto.GeoDataRequest{Level: "provinces", Parent: "NCR"}, want: 5},
		{name: "unbundled scope", req: dto.GeoDataRequest{Level: "provinces", Parent: "XI"}, wantErr: apperrors.ErrNotLoaded},
		{name: "region with parent", req: dto.GeoDataRequest{Level: "region", Parent: "NCR"}, wantErr: apperrors.ErrInvalidRequest},
		{name: "province without parent", req: dto.GeoDataRequest{Level: "province"}, wantErr: apperrors.ErrInvalidRequest},
		{name: "bad level", req: dto.GeoDataRequest{Level: "country"}, wantErr: apperrors.ErrInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uc.GeoData(ctx, tt.req)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDrillDownUseCase_ShutdownStopsLoads(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	created, err := uc.CreateSession(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)

	uc.Shutdown()

	frame, err := uc.Select(ctx, created.SessionID, dto.SelectRequest{Code: "NCR", Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "region", frame.Level.String())
	assert.False(t, frame.Loading)
}
