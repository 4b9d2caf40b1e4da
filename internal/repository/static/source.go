package static

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

type source struct {
	scopes map[domain.ScopeKey][]domain.GeoFeature
	logger *zap.Logger
}

// NewSource serves ds scope by scope.
func NewSource(ds *Dataset, logger *zap.Logger) repository.GeoSourceRepository {
	return &source{
		scopes: ds.Scopes(),
		logger: logger.With(zap.String("component", "static_source")),
	}
}

func (s *source) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, ok := s.scopes[domain.ScopeKey{Level: level, ParentCode: parentCode}]
	if !ok {
		s.logger.Debug("Scope not bundled",
			zap.String("level", level.String()),
			zap.String("parent", parentCode))
		return nil, apperrors.ErrNotLoaded.WithReason(fmt.Sprintf("%s under %q", level, parentCode))
	}

	out := make([]domain.GeoFeature, len(features))
	copy(out, features)
	return out, nil
}
