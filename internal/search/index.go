// Package search provides cross-level name lookup over resident features.
package search

import (
	"strings"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/geostore"
)

const DefaultLimit = 50

// Index reads the store on every query, so results always reflect what is
// resident. It never triggers a fetch.
type Index struct {
	store  *geostore.Store
	logger *zap.Logger
}

func NewIndex(store *geostore.Store, logger *zap.Logger) *Index {
	return &Index{
		store:  store,
		logger: logger.With(zap.String("component", "search")),
	}
}

// Search matches query case-insensitively against feature names. Regions come
// first, then provinces, then municipalities, each in store order. A blank
// query matches nothing.
func (i *Index) Search(query string) []domain.SearchResult {
	return i.SearchLimit(query, 0)
}

// SearchLimit is Search capped at limit results; limit <= 0 means no cap.
func (i *Index) SearchLimit(query string, limit int) []domain.SearchResult {
	needle := strings.ToLower(strings.TrimSpace(query))
	results := []domain.SearchResult{}
	if needle == "" {
		return results
	}

	var matches []domain.GeoFeature
	for _, level := range i.store.Levels() {
		i.store.Walk(level, func(f domain.GeoFeature) bool {
			if strings.Contains(strings.ToLower(f.Name), needle) {
				matches = append(matches, f)
			}
			return limit <= 0 || len(matches) < limit
		})
		if limit > 0 && len(matches) >= limit {
			break
		}
	}

	for _, f := range matches {
		results = append(results, domain.SearchResult{
			Code:        f.Code,
			Name:        f.Name,
			Level:       f.Level,
			ParentChain: i.parentChain(f),
		})
	}

	i.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))

	return results
}

// parentChain lists ancestor codes nearest first, ending at the region.
func (i *Index) parentChain(f domain.GeoFeature) []string {
	chain := []string{}
	for cur := f; cur.ParentCode != ""; {
		chain = append(chain, cur.ParentCode)
		coarser, ok := cur.Level.Coarser()
		if !ok {
			break
		}
		parent, err := i.store.GetFeature(coarser, cur.ParentCode)
		if err != nil {
			break
		}
		cur = parent
	}
	return chain
}
