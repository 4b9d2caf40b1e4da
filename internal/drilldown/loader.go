package drilldown

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/geostore"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/synthetic"
)

// Origin tells where a loaded feature set came from.
type Origin string

const (
	OriginCache     Origin = "cache"
	OriginSource    Origin = "source"
	OriginSynthetic Origin = "synthetic"
)

// Loader resolves the feature set of a scope.
type Loader interface {
	// Cached probes resident data without I/O.
	Cached(scope domain.ScopeKey) ([]domain.GeoFeature, bool)
	// Load fetches or synthesizes the children of parent. parent is nil for
	// the region scope.
	Load(ctx context.Context, scope domain.ScopeKey, parent *domain.GeoFeature) ([]domain.GeoFeature, Origin, error)
}

// FeatureLoader reads the store first, then the geodata source, and falls
// back to synthesis when the source has nothing for the scope.
type FeatureLoader struct {
	store  *geostore.Store
	source repository.GeoSourceRepository
	synth  *synthetic.Aggregator
	logger *zap.Logger
}

// NewFeatureLoader accepts a nil source, in which case every non-region
// scope is synthesized.
func NewFeatureLoader(store *geostore.Store, source repository.GeoSourceRepository, synth *synthetic.Aggregator, logger *zap.Logger) *FeatureLoader {
	return &FeatureLoader{
		store:  store,
		source: source,
		synth:  synth,
		logger: logger.With(zap.String("component", "feature_loader")),
	}
}

func (l *FeatureLoader) Cached(scope domain.ScopeKey) ([]domain.GeoFeature, bool) {
	return l.store.Lookup(scope.Level, scope.ParentCode)
}

func (l *FeatureLoader) Load(ctx context.Context, scope domain.ScopeKey, parent *domain.GeoFeature) ([]domain.GeoFeature, Origin, error) {
	if features, ok := l.Cached(scope); ok {
		return features, OriginCache, nil
	}

	var features []domain.GeoFeature
	var err error
	if l.source != nil {
		features, err = l.source.FetchFeatures(ctx, scope.Level, scope.ParentCode)
	} else {
		err = apperrors.ErrNotLoaded
	}

	switch {
	case err == nil && len(features) > 0:
		return features, OriginSource, nil
	case err == nil || errors.Is(err, apperrors.ErrNotLoaded):
		if parent == nil {
			return nil, "", apperrors.ErrNotLoaded.WithReason(scope.String())
		}
		l.logger.Debug("Source has no data for scope, synthesizing",
			zap.String("scope", scope.String()))
		children, genErr := l.synth.GenerateChildren(*parent, scope.Level)
		if genErr != nil {
			return nil, "", genErr
		}
		return children, OriginSynthetic, nil
	default:
		l.logger.Warn("Geodata fetch failed",
			zap.String("scope", scope.String()),
			zap.Error(err))
		return nil, "", apperrors.ErrFetchFailed.Wrap(err)
	}
}

// Bootstrap loads the region scope into the store. It fails with
// ErrNotLoaded when the source has no regions.
func (l *FeatureLoader) Bootstrap(ctx context.Context) error {
	features, _, err := l.Load(ctx, domain.RootScope(), nil)
	if err != nil {
		return fmt.Errorf("bootstrap regions: %w", err)
	}
	if err := l.store.PutFeatures(domain.LevelRegion, "", features); err != nil {
		return fmt.Errorf("bootstrap regions: %w", err)
	}
	return nil
}
