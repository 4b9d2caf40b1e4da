package repository

import (
	"context"

	"github.com/geo-drilldown/internal/domain"
)

// GeoSourceRepository supplies authoritative feature sets per scope.
type GeoSourceRepository interface {
	// FetchFeatures returns the children of parentCode at level. An empty
	// parentCode addresses the region scope. Returns errors.ErrNotLoaded when
	// the source holds nothing for the scope.
	FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error)
}
