package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionPath_With(t *testing.T) {
	var p SelectionPath

	_, err := p.With(LevelProvince, PathEntry{Code: "NCR-MNL", Name: "Manila"})
	assert.Error(t, err, "province requires a region")

	p, err = p.With(LevelRegion, PathEntry{Code: "NCR", Name: "National Capital Region"})
	require.NoError(t, err)
	p, err = p.With(LevelProvince, PathEntry{Code: "NCR-MNL", Name: "Manila"})
	require.NoError(t, err)
	p, err = p.With(LevelMunicipality, PathEntry{Code: "MNL-BIN", Name: "Binondo"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Depth())
	assert.True(t, p.Consistent())

	// Re-selecting a region drops everything below it.
	p, err = p.With(LevelRegion, PathEntry{Code: "III", Name: "Central Luzon"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Depth())
	assert.Nil(t, p.Province)
	assert.Nil(t, p.Municipality)
}

func TestSelectionPath_Truncate(t *testing.T) {
	p := SelectionPath{
		Region:       &PathEntry{Code: "NCR"},
		Province:     &PathEntry{Code: "NCR-MNL"},
		Municipality: &PathEntry{Code: "MNL-BIN"},
	}

	assert.True(t, p.Truncate(LevelRegion).IsEmpty())

	atProvince := p.Truncate(LevelProvince)
	assert.NotNil(t, atProvince.Region)
	assert.Nil(t, atProvince.Province)

	atMunicipality := p.Truncate(LevelMunicipality)
	assert.NotNil(t, atMunicipality.Province)
	assert.Nil(t, atMunicipality.Municipality)

	// original untouched
	assert.Equal(t, 3, p.Depth())
}

func TestSelectionPath_Breadcrumbs(t *testing.T) {
	var empty SelectionPath
	crumbs := empty.Breadcrumbs("Philippines")
	require.Len(t, crumbs, 1)
	assert.Equal(t, "Philippines", crumbs[0].Label)
	assert.True(t, crumbs[0].Active)

	p := SelectionPath{
		Region:   &PathEntry{Code: "NCR", Name: "National Capital Region"},
		Province: &PathEntry{Code: "NCR-MNL", Name: "Manila"},
	}
	crumbs = p.Breadcrumbs("Philippines")
	require.Len(t, crumbs, 3)
	assert.Equal(t, LevelRegion, crumbs[0].Target)
	assert.Equal(t, LevelProvince, crumbs[1].Target)
	assert.Equal(t, "NCR", crumbs[1].Code)
	assert.Equal(t, LevelMunicipality, crumbs[2].Target)
	assert.False(t, crumbs[1].Active)
	assert.True(t, crumbs[2].Active)
}

func TestSelectionPath_Equal(t *testing.T) {
	a := SelectionPath{Region: &PathEntry{Code: "NCR", Name: "NCR"}}
	b := SelectionPath{Region: &PathEntry{Code: "NCR", Name: "NCR"}}
	assert.True(t, a.Equal(b))

	b.Province = &PathEntry{Code: "NCR-MNL"}
	assert.False(t, a.Equal(b))
}
