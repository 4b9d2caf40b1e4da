package domain

import "fmt"

// PathEntry records the feature chosen at one level.
type PathEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func EntryOf(f GeoFeature) *PathEntry {
	return &PathEntry{Code: f.Code, Name: f.Name}
}

// SelectionPath is filled strictly in level order: Province implies Region,
// Municipality implies Province.
type SelectionPath struct {
	Region       *PathEntry `json:"region,omitempty"`
	Province     *PathEntry `json:"province,omitempty"`
	Municipality *PathEntry `json:"municipality,omitempty"`
}

// Get returns the entry recorded for level, or nil.
func (p SelectionPath) Get(level AdminLevel) *PathEntry {
	switch level {
	case LevelRegion:
		return p.Region
	case LevelProvince:
		return p.Province
	case LevelMunicipality:
		return p.Municipality
	default:
		return nil
	}
}

// With returns a copy with entry set at level and everything finer cleared.
// It fails when the coarser ancestor is missing.
func (p SelectionPath) With(level AdminLevel, entry PathEntry) (SelectionPath, error) {
	if coarser, ok := level.Coarser(); ok && p.Get(coarser) == nil {
		return p, fmt.Errorf("cannot select %s without a %s", level, coarser)
	}
	out := p.Truncate(level)
	e := entry
	switch level {
	case LevelRegion:
		out.Region = &e
	case LevelProvince:
		out.Province = &e
	case LevelMunicipality:
		out.Municipality = &e
	default:
		return p, fmt.Errorf("invalid level %d", int(level))
	}
	return out, nil
}

// Truncate returns a copy keeping only entries strictly coarser than level.
func (p SelectionPath) Truncate(level AdminLevel) SelectionPath {
	var out SelectionPath
	if level > LevelRegion {
		out.Region = p.Region
	}
	if level > LevelProvince {
		out.Province = p.Province
	}
	return out
}

// Depth counts the levels recorded.
func (p SelectionPath) Depth() int {
	n := 0
	for _, l := range AllLevels {
		if p.Get(l) != nil {
			n++
		}
	}
	return n
}

func (p SelectionPath) IsEmpty() bool {
	return p.Depth() == 0
}

// Consistent reports whether the path honours level ordering.
func (p SelectionPath) Consistent() bool {
	if p.Province != nil && p.Region == nil {
		return false
	}
	if p.Municipality != nil && p.Province == nil {
		return false
	}
	return true
}

// Equal compares codes and names entry by entry.
func (p SelectionPath) Equal(o SelectionPath) bool {
	for _, l := range AllLevels {
		a, b := p.Get(l), o.Get(l)
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}

// Breadcrumb is one clickable step of the trail. Target is the level the
// breadcrumb navigates to.
type Breadcrumb struct {
	Label  string     `json:"label"`
	Code   string     `json:"code,omitempty"`
	Target AdminLevel `json:"target"`
	Active bool       `json:"active"`
}

// Breadcrumbs renders the trail from the root to the deepest entry. The
// municipality crumb is not navigable and points at the municipality view.
func (p SelectionPath) Breadcrumbs(rootLabel string) []Breadcrumb {
	crumbs := []Breadcrumb{{Label: rootLabel, Target: LevelRegion}}
	if p.Region != nil {
		crumbs = append(crumbs, Breadcrumb{Label: p.Region.Name, Code: p.Region.Code, Target: LevelProvince})
	}
	if p.Province != nil {
		crumbs = append(crumbs, Breadcrumb{Label: p.Province.Name, Code: p.Province.Code, Target: LevelMunicipality})
	}
	if p.Municipality != nil {
		crumbs = append(crumbs, Breadcrumb{Label: p.Municipality.Name, Code: p.Municipality.Code, Target: LevelMunicipality})
	}
	crumbs[len(crumbs)-1].Active = true
	return crumbs
}

// ViewState is the controller-owned view. HoveredCode is transient.
type ViewState struct {
	Level       AdminLevel    `json:"level"`
	Path        SelectionPath `json:"path"`
	Metric      Metric        `json:"metric"`
	HoveredCode string        `json:"hovered_code,omitempty"`
}

func InitialViewState(metric Metric) ViewState {
	return ViewState{Level: LevelRegion, Metric: metric}
}
