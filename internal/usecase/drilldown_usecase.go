package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/drilldown"
	"github.com/geo-drilldown/internal/geostore"
	"github.com/geo-drilldown/internal/metrics"
	"github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/search"
	"github.com/geo-drilldown/internal/synthetic"
	"github.com/geo-drilldown/internal/usecase/dto"
)

type Config struct {
	FetchTimeout   time.Duration
	SessionIdleTTL time.Duration
	DefaultMetric  domain.Metric
	LegendSteps    int
	RootLabel      string
}

// DrillDownUseCase owns the session registry and renders frames.
type DrillDownUseCase struct {
	source repository.GeoSourceRepository
	synth  *synthetic.Aggregator
	sink   drilldown.EventSink
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewDrillDownUseCase(
	source repository.GeoSourceRepository,
	synth *synthetic.Aggregator,
	sink drilldown.EventSink,
	cfg Config,
	logger *zap.Logger,
) *DrillDownUseCase {
	if !cfg.DefaultMetric.Valid() {
		cfg.DefaultMetric = domain.MetricSales
	}
	if cfg.LegendSteps <= 0 {
		cfg.LegendSteps = colorscale.DefaultLegendSteps
	}
	if cfg.RootLabel == "" {
		cfg.RootLabel = "Philippines"
	}
	return &DrillDownUseCase{
		source:   source,
		synth:    synth,
		sink:     sink,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "drilldown_usecase")),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// SetClock replaces the clock used for idle tracking.
func (uc *DrillDownUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// CreateSession bootstraps regions into a fresh store and registers a controller.
func (uc *DrillDownUseCase) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionCreatedResponse, error) {
	metric := uc.cfg.DefaultMetric
	if req.Metric != "" {
		m, err := domain.ParseMetric(req.Metric)
		if err != nil {
			return nil, errors.ErrInvalidMetric.WithReason(req.Metric)
		}
		metric = m
	}

	id := uuid.NewString()
	logger := uc.logger.With(zap.String("session_id", id))

	store := geostore.New(logger)
	loader := drilldown.NewFeatureLoader(store, uc.source, uc.synth, logger)

	bootCtx, cancel := context.WithTimeout(ctx, uc.fetchTimeout())
	defer cancel()
	if err := loader.Bootstrap(bootCtx); err != nil {
		uc.logger.Error("Failed to bootstrap session", zap.Error(err))
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.ErrFetchFailed.Wrap(err)
	}

	scales := colorscale.NewCache()
	ctrl, err := drilldown.New(store, loader, scales, uc.sink, drilldown.Config{
		SessionID:    id,
		Metric:       metric,
		FetchTimeout: uc.cfg.FetchTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	s := &session{
		id:        id,
		store:     store,
		scales:    scales,
		ctrl:      ctrl,
		index:     search.NewIndex(store, logger),
		createdAt: now,
	}
	s.touch(now)

	uc.mu.Lock()
	uc.sessions[id] = s
	uc.mu.Unlock()
	metrics.SessionsActive.Inc()

	uc.logger.Info("Session created", zap.String("session_id", id), zap.String("metric", string(metric)))
	return &dto.SessionCreatedResponse{SessionID: id, Frame: uc.frame(s)}, nil
}

func (uc *DrillDownUseCase) GetFrame(id string) (*dto.Frame, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	return uc.frame(s), nil
}

// DeleteSession unregisters the session. Loads still in flight finish in
// the background and are discarded with it.
func (uc *DrillDownUseCase) DeleteSession(id string) error {
	uc.mu.Lock()
	s, ok := uc.sessions[id]
	delete(uc.sessions, id)
	uc.mu.Unlock()
	if !ok {
		return errors.ErrSessionNotFound.WithReason(id)
	}

	s.ctrl.Close()
	metrics.SessionsActive.Dec()
	uc.logger.Info("Session deleted", zap.String("scope", s.ctrl.Snapshot().Scope.String()), zap.String("session_id", id))
	return nil
}

func (uc *DrillDownUseCase) Select(ctx context.Context, id string, req dto.SelectRequest) (*dto.Frame, error) {
	return uc.transition(ctx, id, req.Wait, func(c *drilldown.Controller) (*drilldown.Pending, error) {
		return c.SelectFeature(ctx, req.Code)
	})
}

func (uc *DrillDownUseCase) Navigate(ctx context.Context, id string, req dto.NavigateRequest) (*dto.Frame, error) {
	level, err := domain.ParseAdminLevel(req.Level)
	if err != nil {
		return nil, errors.ErrInvalidLevel.WithReason(req.Level)
	}
	return uc.transition(ctx, id, req.Wait, func(c *drilldown.Controller) (*drilldown.Pending, error) {
		return c.NavigateToLevel(ctx, level)
	})
}

func (uc *DrillDownUseCase) Reset(ctx context.Context, id string, req dto.WaitRequest) (*dto.Frame, error) {
	return uc.transition(ctx, id, req.Wait, func(c *drilldown.Controller) (*drilldown.Pending, error) {
		return c.ResetView(ctx)
	})
}

func (uc *DrillDownUseCase) Retry(ctx context.Context, id string, req dto.WaitRequest) (*dto.Frame, error) {
	return uc.transition(ctx, id, req.Wait, func(c *drilldown.Controller) (*drilldown.Pending, error) {
		return c.Retry(ctx)
	})
}

func (uc *DrillDownUseCase) Jump(ctx context.Context, id string, req dto.JumpRequest) (*dto.Frame, error) {
	level, err := domain.ParseAdminLevel(req.Level)
	if err != nil {
		return nil, errors.ErrInvalidLevel.WithReason(req.Level)
	}
	return uc.transition(ctx, id, req.Wait, func(c *drilldown.Controller) (*drilldown.Pending, error) {
		return c.JumpTo(ctx, level, req.Code)
	})
}

func (uc *DrillDownUseCase) SetMetric(id string, req dto.MetricRequest) (*dto.Frame, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	metric, err := domain.ParseMetric(req.Metric)
	if err != nil {
		return nil, errors.ErrInvalidMetric.WithReason(req.Metric)
	}
	if err := s.ctrl.SetMetric(metric); err != nil {
		return nil, err
	}
	return uc.frame(s), nil
}

func (uc *DrillDownUseCase) SetHover(id string, req dto.HoverRequest) (*dto.Frame, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.ctrl.SetHovered(req.Code); err != nil {
		return nil, err
	}
	return uc.frame(s), nil
}

// Search matches names across every level resident in the session.
func (uc *DrillDownUseCase) Search(id string, req dto.SearchRequest) (*dto.SearchResponse, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	results := s.index.SearchLimit(req.Query, limit)
	return &dto.SearchResponse{Results: results, Total: len(results)}, nil
}

func (uc *DrillDownUseCase) Legend(id string, req dto.LegendRequest) (*dto.LegendResponse, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	steps := req.Steps
	if steps <= 0 {
		steps = uc.cfg.LegendSteps
	}
	snap := s.ctrl.Snapshot()
	return &dto.LegendResponse{
		Metric: snap.View.Metric,
		Scale:  snap.Scale,
		Steps:  snap.Scale.LegendSteps(steps),
	}, nil
}

// GeoData reads a scope straight from the configured source.
func (uc *DrillDownUseCase) GeoData(ctx context.Context, req dto.GeoDataRequest) ([]domain.GeoFeature, error) {
	level, err := domain.ParseAdminLevel(req.Level)
	if err != nil {
		return nil, errors.ErrInvalidLevel.WithReason(req.Level)
	}
	if level == domain.LevelRegion && req.Parent != "" {
		return nil, errors.ErrInvalidRequest.WithReason("regions have no parent")
	}
	if level != domain.LevelRegion && req.Parent == "" {
		return nil, errors.ErrInvalidRequest.WithReason("parent is required below the region level")
	}
	if uc.source == nil {
		return nil, errors.ErrNotLoaded.WithReason("no geodata source configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, uc.fetchTimeout())
	defer cancel()
	features, err := uc.source.FetchFeatures(fetchCtx, level, req.Parent)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.ErrFetchFailed.Wrap(err)
	}
	return features, nil
}

// EvictIdle removes sessions untouched for longer than the idle TTL.
func (uc *DrillDownUseCase) EvictIdle() int {
	if uc.cfg.SessionIdleTTL <= 0 {
		return 0
	}
	now := uc.now()

	uc.mu.Lock()
	var evicted []string
	for id, s := range uc.sessions {
		if s.idleSince(now) > uc.cfg.SessionIdleTTL {
			evicted = append(evicted, id)
			delete(uc.sessions, id)
			s.ctrl.Close()
		}
	}
	uc.mu.Unlock()

	metrics.SessionsActive.Sub(float64(len(evicted)))
	if len(evicted) > 0 {
		uc.logger.Info("Evicted idle sessions", zap.Strings("session_ids", evicted))
	}
	return len(evicted)
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (uc *DrillDownUseCase) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.EvictIdle()
		}
	}
}

func (uc *DrillDownUseCase) SessionCount() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.sessions)
}

// Shutdown closes every session and waits for their background loads.
func (uc *DrillDownUseCase) Shutdown() {
	uc.mu.RLock()
	all := make([]*session, 0, len(uc.sessions))
	for _, s := range uc.sessions {
		all = append(all, s)
	}
	uc.mu.RUnlock()

	for _, s := range all {
		s.ctrl.Close()
	}
	for _, s := range all {
		s.ctrl.Wait()
	}
}

func (uc *DrillDownUseCase) session(id string) (*session, error) {
	uc.mu.RLock()
	s, ok := uc.sessions[id]
	uc.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound.WithReason(id)
	}
	s.touch(uc.now())
	return s, nil
}

// transition runs op and, when wait is set, blocks until its load settles.
// The frame is returned even when the load failed or was superseded; the
// failure is carried in Frame.Error.
func (uc *DrillDownUseCase) transition(ctx context.Context, id string, wait bool, op func(*drilldown.Controller) (*drilldown.Pending, error)) (*dto.Frame, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}

	pending, err := op(s.ctrl)
	if err != nil {
		return nil, err
	}
	if wait {
		if err := pending.Wait(ctx); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return uc.frame(s), nil
}

func (uc *DrillDownUseCase) fetchTimeout() time.Duration {
	if uc.cfg.FetchTimeout > 0 {
		return uc.cfg.FetchTimeout
	}
	return drilldown.DefaultFetchTimeout
}
