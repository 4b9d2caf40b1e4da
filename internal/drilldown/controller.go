// Package drilldown implements the Region → Province → Municipality state
// machine of one dashboard session.
package drilldown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/geostore"
	"github.com/geo-drilldown/internal/metrics"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

const DefaultFetchTimeout = 10 * time.Second

// EventSink receives controller events. Publish errors are logged and dropped.
type EventSink interface {
	Publish(ctx context.Context, event domain.DrillDownEvent) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, domain.DrillDownEvent) error { return nil }

type Config struct {
	SessionID    string
	Metric       domain.Metric
	FetchTimeout time.Duration
}

// transition describes the target of a request: the view level and path to
// land on, and the parent whose children become visible (nil for regions).
type transition struct {
	kind   string
	level  domain.AdminLevel
	path   domain.SelectionPath
	parent *domain.GeoFeature
}

func (t transition) scope() domain.ScopeKey {
	if t.parent == nil {
		return domain.RootScope()
	}
	return domain.ScopeKey{Level: t.level, ParentCode: t.parent.Code}
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	View     domain.ViewState
	Scope    domain.ScopeKey
	Features []domain.GeoFeature
	Scale    colorscale.Scale
	Loading  bool
	Err      error
}

type Controller struct {
	mu     sync.Mutex
	store  *geostore.Store
	loader Loader
	scales *colorscale.Cache
	sink   EventSink
	cfg    Config
	logger *zap.Logger

	view    domain.ViewState
	scope   domain.ScopeKey
	loading bool
	token   uint64
	lastErr error
	failed  *transition
	closed  bool

	// the background load the view is heading to, joined by identical requests
	pendingT *transition
	pendingP *Pending

	inflight sync.WaitGroup
}

// New builds a controller at the region level. The region scope must already
// be resident in store. scales is subscribed to the store's invalidations.
func New(store *geostore.Store, loader Loader, scales *colorscale.Cache, sink EventSink, cfg Config, logger *zap.Logger) (*Controller, error) {
	if _, ok := store.Lookup(domain.LevelRegion, ""); !ok {
		return nil, apperrors.ErrNotLoaded.WithReason("regions must be loaded before the controller starts")
	}
	if !cfg.Metric.Valid() {
		cfg.Metric = domain.MetricSales
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if sink == nil {
		sink = nopSink{}
	}
	if scales == nil {
		scales = colorscale.NewCache()
	}
	store.OnInvalidate(scales.Invalidate)

	return &Controller{
		store:  store,
		loader: loader,
		scales: scales,
		sink:   sink,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "drilldown"), zap.String("session_id", cfg.SessionID)),
		view:   domain.InitialViewState(cfg.Metric),
		scope:  domain.RootScope(),
	}, nil
}

// SelectFeature drills into the feature with code at the current level. At
// the municipality level it records the leaf and emits leaf_selected instead.
func (c *Controller) SelectFeature(ctx context.Context, code string) (*Pending, error) {
	c.mu.Lock()

	level := c.view.Level
	f, err := c.store.GetFeature(level, code)
	if err == nil && f.ParentCode != c.scope.ParentCode {
		err = apperrors.ErrNotFound.WithReason(fmt.Sprintf("%s %q is not visible", level, code))
	}
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	path, err := c.view.Path.With(level, *domain.EntryOf(f))
	if err != nil {
		c.mu.Unlock()
		return nil, apperrors.ErrInvalidRequest.Wrap(err)
	}

	finer, ok := level.Finer()
	if !ok {
		event := c.selectLeafLocked(f, path)
		c.mu.Unlock()
		c.publish(ctx, event)
		metrics.TransitionsTotal.WithLabelValues("leaf").Inc()
		return resolved(nil), nil
	}

	p, event := c.beginLocked(ctx, transition{kind: "select", level: finer, path: path, parent: &f})
	c.mu.Unlock()
	c.publish(ctx, event)
	return p, nil
}

func (c *Controller) selectLeafLocked(leaf domain.GeoFeature, path domain.SelectionPath) *domain.DrillDownEvent {
	c.token++
	c.loading = false
	c.clearPendingLocked()
	c.view.Path = path
	c.view.HoveredCode = ""

	event := c.eventLocked(domain.EventLeafSelected)
	event.Code = leaf.Code
	event.Feature = &leaf
	if parent, err := c.store.GetFeature(domain.LevelProvince, leaf.ParentCode); err == nil {
		event.Parent = &parent
	}
	return event
}

// NavigateToLevel jumps to a breadcrumb. It is a no-op when the ancestor the
// target level needs is not on the path.
func (c *Controller) NavigateToLevel(ctx context.Context, level domain.AdminLevel) (*Pending, error) {
	if !level.Valid() {
		return nil, apperrors.ErrInvalidLevel.WithReason(fmt.Sprintf("level %d", int(level)))
	}
	if level == domain.LevelRegion {
		return c.reset(ctx, "navigate")
	}

	c.mu.Lock()

	coarser, _ := level.Coarser()
	anchor := c.view.Path.Get(coarser)
	if anchor == nil {
		c.mu.Unlock()
		c.logger.Debug("Navigation ignored, ancestor not selected",
			zap.String("target", level.String()))
		return resolved(nil), nil
	}
	parent, err := c.store.GetFeature(coarser, anchor.Code)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	p, event := c.beginLocked(ctx, transition{kind: "navigate", level: level, path: c.view.Path.Truncate(level), parent: &parent})
	c.mu.Unlock()
	c.publish(ctx, event)
	return p, nil
}

// ResetView returns to the region level with an empty path.
func (c *Controller) ResetView(ctx context.Context) (*Pending, error) {
	return c.reset(ctx, "reset")
}

func (c *Controller) reset(ctx context.Context, kind string) (*Pending, error) {
	c.mu.Lock()
	p, event := c.beginLocked(ctx, transition{kind: kind, level: domain.LevelRegion})
	c.mu.Unlock()
	c.publish(ctx, event)
	return p, nil
}

// SetMetric switches the coloring metric. Only the visible scale is rebuilt,
// lazily on the next snapshot.
func (c *Controller) SetMetric(metric domain.Metric) error {
	if !metric.Valid() {
		return apperrors.ErrInvalidMetric.WithReason(string(metric))
	}
	c.mu.Lock()
	c.view.Metric = metric
	c.mu.Unlock()

	metrics.TransitionsTotal.WithLabelValues("metric").Inc()
	return nil
}

// SetHovered marks a visible feature for emphasis. An empty code clears it.
func (c *Controller) SetHovered(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if code == "" {
		c.view.HoveredCode = ""
		return nil
	}
	features, _ := c.store.Lookup(c.scope.Level, c.scope.ParentCode)
	if _, ok := domain.FindFeature(features, code); !ok {
		return apperrors.ErrNotFound.WithReason(fmt.Sprintf("%q is not visible", code))
	}
	c.view.HoveredCode = code
	return nil
}

// Retry re-issues the last failed transition. Without one it does nothing.
func (c *Controller) Retry(ctx context.Context) (*Pending, error) {
	c.mu.Lock()
	if c.failed == nil {
		c.mu.Unlock()
		return resolved(nil), nil
	}
	t := *c.failed
	t.kind = "retry"
	p, event := c.beginLocked(ctx, t)
	c.mu.Unlock()
	c.publish(ctx, event)
	return p, nil
}

// JumpTo lands on a resident feature by rebuilding its ancestor path, as if
// each ancestor had been selected in turn.
func (c *Controller) JumpTo(ctx context.Context, level domain.AdminLevel, code string) (*Pending, error) {
	if !level.Valid() {
		return nil, apperrors.ErrInvalidLevel.WithReason(fmt.Sprintf("level %d", int(level)))
	}

	c.mu.Lock()

	chain, err := c.ancestryLocked(level, code)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	var path domain.SelectionPath
	for _, f := range chain {
		if path, err = path.With(f.Level, *domain.EntryOf(f)); err != nil {
			c.mu.Unlock()
			return nil, apperrors.ErrInvalidRequest.Wrap(err)
		}
	}

	target := chain[len(chain)-1]
	if target.Level == domain.LevelMunicipality {
		province := chain[1]
		t := transition{kind: "jump", level: domain.LevelMunicipality, path: path.Truncate(domain.LevelMunicipality), parent: &province}
		if _, ok := c.loader.Cached(t.scope()); !ok {
			c.mu.Unlock()
			return nil, apperrors.ErrNotLoaded.WithReason(t.scope().String())
		}
		_, levelEvent := c.beginLocked(ctx, t)
		leafEvent := c.selectLeafLocked(target, path)
		c.mu.Unlock()
		c.publish(ctx, levelEvent)
		c.publish(ctx, leafEvent)
		return resolved(nil), nil
	}

	finer, _ := target.Level.Finer()
	p, event := c.beginLocked(ctx, transition{kind: "jump", level: finer, path: path, parent: &target})
	c.mu.Unlock()
	c.publish(ctx, event)
	return p, nil
}

// ancestryLocked returns the feature and its ancestors, region first.
func (c *Controller) ancestryLocked(level domain.AdminLevel, code string) ([]domain.GeoFeature, error) {
	f, err := c.store.GetFeature(level, code)
	if err != nil {
		return nil, err
	}
	chain := []domain.GeoFeature{f}
	for cur := f; cur.ParentCode != ""; {
		coarser, _ := cur.Level.Coarser()
		parent, err := c.store.GetFeature(coarser, cur.ParentCode)
		if err != nil {
			return nil, err
		}
		chain = append([]domain.GeoFeature{parent}, chain...)
		cur = parent
	}
	return chain, nil
}

// beginLocked supersedes any in-flight request and starts t. A resident
// scope is applied synchronously; otherwise the load runs in the background
// and the returned Pending resolves when it lands or is dropped. A request
// for the same target as the load in flight joins it.
func (c *Controller) beginLocked(ctx context.Context, t transition) (*Pending, *domain.DrillDownEvent) {
	c.view.HoveredCode = ""
	metrics.TransitionsTotal.WithLabelValues(t.kind).Inc()

	if c.loading && c.pendingT != nil && sameTarget(*c.pendingT, t) {
		return c.pendingP, nil
	}

	c.token++
	token := c.token
	c.clearPendingLocked()

	if _, ok := c.loader.Cached(t.scope()); ok {
		metrics.LoadsTotal.WithLabelValues(string(OriginCache)).Inc()
		c.loading = false
		c.applyLocked(t)
		return resolved(nil), c.eventLocked(domain.EventLevelChanged)
	}

	if c.closed {
		c.loading = false
		return resolved(ErrClosed), nil
	}

	c.loading = true
	p := newPending()
	c.pendingT, c.pendingP = &t, p
	c.inflight.Add(1)
	go c.load(context.WithoutCancel(ctx), token, t, p)
	return p, nil
}

func sameTarget(a, b transition) bool {
	return a.level == b.level && a.scope() == b.scope() && a.path.Equal(b.path)
}

func (c *Controller) clearPendingLocked() {
	c.pendingT, c.pendingP = nil, nil
}

func (c *Controller) load(ctx context.Context, token uint64, t transition, p *Pending) {
	defer c.inflight.Done()

	lctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	features, origin, err := c.loader.Load(lctx, t.scope(), t.parent)

	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		metrics.StaleResponsesTotal.Inc()
		c.logger.Debug("Stale load discarded",
			zap.String("scope", t.scope().String()),
			zap.Uint64("token", token))
		p.resolve(ErrSuperseded)
		return
	}
	c.clearPendingLocked()

	if err == nil {
		scope := t.scope()
		err = c.store.PutFeatures(scope.Level, scope.ParentCode, features)
	}
	if err != nil {
		event := c.failLocked(t, err)
		failErr := c.lastErr
		c.mu.Unlock()
		c.publish(ctx, event)
		p.resolve(failErr)
		return
	}

	c.loading = false
	c.applyLocked(t)
	event := c.eventLocked(domain.EventLevelChanged)
	c.mu.Unlock()

	metrics.LoadsTotal.WithLabelValues(string(origin)).Inc()
	c.publish(ctx, event)
	p.resolve(nil)
}

func (c *Controller) applyLocked(t transition) {
	c.view.Level = t.level
	c.view.Path = t.path
	c.view.HoveredCode = ""
	c.scope = t.scope()
	c.lastErr = nil
	c.failed = nil
}

// failLocked keeps the view where it was and records a retryable error.
func (c *Controller) failLocked(t transition, err error) *domain.DrillDownEvent {
	if !errors.Is(err, apperrors.ErrFetchFailed) {
		err = apperrors.ErrFetchFailed.Wrap(err)
	}
	c.loading = false
	c.lastErr = err
	c.failed = &t
	metrics.FetchFailuresTotal.Inc()

	c.logger.Warn("Drill-down load failed",
		zap.String("scope", t.scope().String()),
		zap.Error(err))

	event := c.eventLocked(domain.EventLoadFailed)
	event.Level = t.level
	event.Path = t.path
	event.Error = err.Error()
	if t.parent != nil {
		event.Code = t.parent.Code
	}
	return event
}

func (c *Controller) eventLocked(typ domain.EventType) *domain.DrillDownEvent {
	return &domain.DrillDownEvent{
		Type:       typ,
		SessionID:  c.cfg.SessionID,
		Level:      c.view.Level,
		Path:       c.view.Path,
		OccurredAt: time.Now().UTC(),
	}
}

func (c *Controller) publish(ctx context.Context, event *domain.DrillDownEvent) {
	if event == nil {
		return
	}
	if err := c.sink.Publish(ctx, *event); err != nil {
		c.logger.Warn("Failed to publish drill-down event",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

// View returns a copy of the current view state.
func (c *Controller) View() domain.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last failed load, cleared by the next
// successful transition.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	features, _ := c.store.Lookup(c.scope.Level, c.scope.ParentCode)
	return Snapshot{
		View:     c.view,
		Scope:    c.scope,
		Features: features,
		Scale:    c.scales.Get(c.scope, c.view.Metric, features),
		Loading:  c.loading,
		Err:      c.lastErr,
	}
}

// Close stops the controller from starting background loads. Requests that
// would need one resolve with ErrClosed; resident scopes still apply.
// Call Wait afterwards to drain loads already running.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Wait blocks until every background load has finished. Once Close has been
// called no new load can start, so Wait cannot race a late one.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
