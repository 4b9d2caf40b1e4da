// Package synthetic derives deterministic child feature sets for parents
// that have no authoritative data.
package synthetic

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

const (
	DefaultMinChildren = 2
	DefaultMaxChildren = 8

	cellFill = 0.9
)

// Used when the parent carries no usable geometry.
var fallbackBound = orb.Bound{Min: orb.Point{121.0, 14.5}, Max: orb.Point{122.5, 16.0}}

type Config struct {
	MinChildren int
	MaxChildren int
}

type valueRange struct {
	salesBase, salesSpan   float64
	storesBase, storesSpan int
	txBase, txSpan         int
	growthBase, growthSpan float64
}

var ranges = map[domain.AdminLevel]valueRange{
	domain.LevelProvince: {
		salesBase: 500_000, salesSpan: 5_000_000,
		storesBase: 5, storesSpan: 20,
		txBase: 1000, txSpan: 5000,
		growthBase: -5, growthSpan: 20,
	},
	domain.LevelMunicipality: {
		salesBase: 100_000, salesSpan: 1_000_000,
		storesBase: 1, storesSpan: 5,
		txBase: 200, txSpan: 1000,
		growthBase: -10, growthSpan: 30,
	},
}

type Aggregator struct {
	names  NameTables
	cfg    Config
	logger *zap.Logger
}

func New(names NameTables, cfg Config, logger *zap.Logger) *Aggregator {
	if cfg.MinChildren <= 0 {
		cfg.MinChildren = DefaultMinChildren
	}
	if cfg.MaxChildren < cfg.MinChildren {
		cfg.MaxChildren = max(cfg.MinChildren, DefaultMaxChildren)
	}
	return &Aggregator{
		names:  names,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "synthetic")),
	}
}

// GenerateChildren returns the same children for the same parent on every call.
func (a *Aggregator) GenerateChildren(parent domain.GeoFeature, childLevel domain.AdminLevel) ([]domain.GeoFeature, error) {
	finer, ok := parent.Level.Finer()
	if !ok {
		return nil, apperrors.ErrNoFinerLevel.WithReason(fmt.Sprintf("%s %q", parent.Level, parent.Code))
	}
	if childLevel != finer {
		return nil, apperrors.ErrInvalidLevel.WithReason(fmt.Sprintf("children of a %s are %ss, not %ss", parent.Level, finer, childLevel))
	}

	names := a.childNames(parent, childLevel)
	tiles, err := LayoutGrid(parent.Geometry, len(names))
	if err != nil {
		return nil, fmt.Errorf("synthesize geometry for %s: %w", parent.Code, err)
	}
	r := ranges[childLevel]

	children := make([]domain.GeoFeature, len(names))
	for i, name := range names {
		children[i] = domain.GeoFeature{
			Code:       childCode(parent.Code, childLevel, i),
			Name:       name,
			ParentCode: parent.Code,
			Level:      childLevel,
			Metrics: domain.Metrics{
				Sales:        math.Round((r.salesBase+draw(parent.Code, i, domain.MetricSales).Float64()*r.salesSpan)*100) / 100,
				Stores:       float64(r.storesBase + draw(parent.Code, i, domain.MetricStores).IntN(r.storesSpan)),
				Transactions: float64(r.txBase + draw(parent.Code, i, domain.MetricTransactions).IntN(r.txSpan)),
				Growth:       math.Round((r.growthBase+draw(parent.Code, i, domain.MetricGrowth).Float64()*r.growthSpan)*10) / 10,
			},
			Geometry: tiles[i],
		}
	}

	a.logger.Debug("Children synthesized",
		zap.String("parent", parent.Code),
		zap.String("level", childLevel.String()),
		zap.Int("count", len(children)))

	return children, nil
}

func (a *Aggregator) childNames(parent domain.GeoFeature, childLevel domain.AdminLevel) []string {
	if names, ok := a.names.Lookup(parent, childLevel); ok {
		if len(names) > a.cfg.MaxChildren {
			names = names[:a.cfg.MaxChildren]
		}
		return append([]string(nil), names...)
	}

	span := a.cfg.MaxChildren - a.cfg.MinChildren + 1
	count := a.cfg.MinChildren + seeded(parent.Code+"|count").IntN(span)

	label := "Province"
	if childLevel == domain.LevelMunicipality {
		label = "Municipality"
	}
	names := make([]string, count)
	for i := range names {
		names[i] = label + " " + strconv.Itoa(i+1)
	}
	return names
}

func childCode(parentCode string, level domain.AdminLevel, index int) string {
	suffix := "P"
	if level == domain.LevelMunicipality {
		suffix = "M"
	}
	return fmt.Sprintf("%s-%s%d", parentCode, suffix, index+1)
}

func draw(parentCode string, index int, metric domain.Metric) *rand.Rand {
	return seeded(parentCode + "|" + strconv.Itoa(index) + "|" + string(metric))
}

func seeded(key string) *rand.Rand {
	seed := xxhash.Sum64String(key)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func parentBound(raw json.RawMessage) orb.Bound {
	if len(raw) == 0 {
		return fallbackBound
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g.Coordinates == nil {
		return fallbackBound
	}
	b := g.Coordinates.Bound()
	if b.Max.Lon() <= b.Min.Lon() || b.Max.Lat() <= b.Min.Lat() {
		return fallbackBound
	}
	return b
}

// LayoutGrid returns n non-overlapping polygon tiles covering the bounding
// box of parentGeometry, or a fixed box when the parent has no geometry.
func LayoutGrid(parentGeometry json.RawMessage, n int) ([]json.RawMessage, error) {
	bound := parentBound(parentGeometry)
	tiles := make([]json.RawMessage, n)
	for i := range tiles {
		tile, err := gridCell(bound, i, n)
		if err != nil {
			return nil, err
		}
		tiles[i] = tile
	}
	return tiles, nil
}

// gridCell lays n tiles out in ceil(sqrt(n)) columns over bound and returns
// tile i shrunk around its center.
func gridCell(bound orb.Bound, i, n int) (json.RawMessage, error) {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	w := (bound.Max.Lon() - bound.Min.Lon()) / float64(cols)
	h := (bound.Max.Lat() - bound.Min.Lat()) / float64(rows)

	col, row := i%cols, i/cols
	center := orb.Point{
		bound.Min.Lon() + w*(float64(col)+0.5),
		bound.Max.Lat() - h*(float64(row)+0.5),
	}
	hw, hh := w*cellFill/2, h*cellFill/2

	cell := orb.Bound{
		Min: orb.Point{center.Lon() - hw, center.Lat() - hh},
		Max: orb.Point{center.Lon() + hw, center.Lat() + hh},
	}
	return json.Marshal(geojson.NewGeometry(cell.ToPolygon()))
}
