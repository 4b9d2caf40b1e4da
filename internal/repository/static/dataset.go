// Package static serves the bundled Philippines dataset.
package static

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/synthetic"
)

//go:embed data/philippines.json
var datasetFS embed.FS

// Dataset is a flat list of features ordered parents before children.
type Dataset struct {
	Country  string              `json:"country"`
	Features []domain.GeoFeature `json:"features"`
}

// LoadDataset parses the embedded dataset.
func LoadDataset() (*Dataset, error) {
	data, err := datasetFS.ReadFile("data/philippines.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded dataset: %w", err)
	}
	return parseDataset(data)
}

// ReadDataset parses a dataset from r, as written by WriteTo.
func ReadDataset(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return parseDataset(data)
}

func parseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if err := ds.fillGeometry(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// fillGeometry lays out children without geometry as a grid inside their
// parent's bounding box.
func (d *Dataset) fillGeometry() error {
	byCode := make(map[domain.AdminLevel]map[string]int)
	for i, f := range d.Features {
		if byCode[f.Level] == nil {
			byCode[f.Level] = make(map[string]int)
		}
		byCode[f.Level][f.Code] = i
	}

	for _, level := range domain.AllLevels[1:] {
		coarser, _ := level.Coarser()
		groups := make(map[string][]int)
		var order []string
		for i, f := range d.Features {
			if f.Level != level || len(f.Geometry) > 0 {
				continue
			}
			if _, seen := groups[f.ParentCode]; !seen {
				order = append(order, f.ParentCode)
			}
			groups[f.ParentCode] = append(groups[f.ParentCode], i)
		}

		for _, parentCode := range order {
			idx := groups[parentCode]
			var parentGeometry json.RawMessage
			if pi, ok := byCode[coarser][parentCode]; ok {
				parentGeometry = d.Features[pi].Geometry
			}
			tiles, err := synthetic.LayoutGrid(parentGeometry, len(idx))
			if err != nil {
				return fmt.Errorf("laying out %s under %s: %w", level, parentCode, err)
			}
			for n, i := range idx {
				d.Features[i].Geometry = tiles[n]
			}
		}
	}
	return nil
}

// Scopes groups the features by scope, keeping dataset order within each.
func (d *Dataset) Scopes() map[domain.ScopeKey][]domain.GeoFeature {
	out := make(map[domain.ScopeKey][]domain.GeoFeature)
	for _, f := range d.Features {
		key := domain.ScopeKey{Level: f.Level, ParentCode: f.ParentCode}
		out[key] = append(out[key], f)
	}
	return out
}

// ScopeKeys lists scopes in first-seen order.
func (d *Dataset) ScopeKeys() []domain.ScopeKey {
	seen := make(map[domain.ScopeKey]bool)
	var keys []domain.ScopeKey
	for _, f := range d.Features {
		key := domain.ScopeKey{Level: f.Level, ParentCode: f.ParentCode}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// WriteTo encodes the dataset as JSON.
func (d *Dataset) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
