package static_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/repository/static"
)

func TestLoadDataset(t *testing.T) {
	ds, err := static.LoadDataset()
	require.NoError(t, err)
	assert.Equal(t, "Philippines", ds.Country)

	scopes := ds.Scopes()
	assert.Len(t, scopes[domain.RootScope()], 17)
	assert.Len(t, scopes[domain.ScopeKey{Level: domain.LevelProvince, ParentCode: "NCR"}], 5)
	assert.Len(t, scopes[domain.ScopeKey{Level: domain.LevelMunicipality, ParentCode: "IVA-CAV"}], 6)

	for _, f := range ds.Features {
		assert.NoError(t, f.Validate(), f.Code)
		g, err := geojson.UnmarshalGeometry(f.Geometry)
		require.NoError(t, err, f.Code)
		assert.Equal(t, "Polygon", g.Type)
	}

	keys := ds.ScopeKeys()
	assert.Equal(t, domain.RootScope(), keys[0])
}

func TestDataset_ProvinceTilesInsideRegion(t *testing.T) {
	ds, err := static.LoadDataset()
	require.NoError(t, err)

	scopes := ds.Scopes()
	ncr := scopes[domain.RootScope()][0]
	require.Equal(t, "NCR", ncr.Code)
	regionGeom, err := geojson.UnmarshalGeometry(ncr.Geometry)
	require.NoError(t, err)
	bound := regionGeom.Coordinates.Bound()

	for _, p := range scopes[domain.ScopeKey{Level: domain.LevelProvince, ParentCode: "NCR"}] {
		g, err := geojson.UnmarshalGeometry(p.Geometry)
		require.NoError(t, err)
		assert.True(t, bound.Contains(g.Coordinates.Bound().Center()), p.Code)
	}
}

func TestDataset_RoundTrip(t *testing.T) {
	ds, err := static.LoadDataset()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = ds.WriteTo(&buf)
	require.NoError(t, err)

	again, err := static.ReadDataset(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(ds.Features), len(again.Features))
	assert.Equal(t, ds.Features[20].Code, again.Features[20].Code)
}

func TestSource_FetchFeatures(t *testing.T) {
	ds, err := static.LoadDataset()
	require.NoError(t, err)
	src := static.NewSource(ds, zap.NewNop())
	ctx := context.Background()

	regions, err := src.FetchFeatures(ctx, domain.LevelRegion, "")
	require.NoError(t, err)
	assert.Len(t, regions, 17)
	assert.Equal(t, 12.5, regions[0].Metrics.Growth)

	manila, err := src.FetchFeatures(ctx, domain.LevelMunicipality, "NCR-MNL")
	require.NoError(t, err)
	assert.Equal(t, "Binondo", manila[0].Name)

	_, err = src.FetchFeatures(ctx, domain.LevelProvince, "XIII")
	assert.True(t, errors.Is(err, apperrors.ErrNotLoaded))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.FetchFeatures(cancelled, domain.LevelRegion, "")
	assert.ErrorIs(t, err, context.Canceled)
}
