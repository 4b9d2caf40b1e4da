package colorscale

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/geo-drilldown/internal/domain"
)

// ColorBrewer sequential 9-class ramps, light to dark.
var palettes = map[domain.Palette][]colorful.Color{
	domain.PaletteBlues: mustStops(
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b",
	),
	domain.PaletteGreens: mustStops(
		"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476",
		"#41ab5d", "#238b45", "#006d2c", "#00441b",
	),
	domain.PaletteOranges: mustStops(
		"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c",
		"#f16913", "#d94801", "#a63603", "#7f2704",
	),
}

func mustStops(hexes ...string) []colorful.Color {
	stops := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		stops[i] = c
	}
	return stops
}

// Sample returns the palette color at position t in [0,1].
func Sample(p domain.Palette, t float64) colorful.Color {
	stops, ok := palettes[p]
	if !ok {
		stops = palettes[domain.PaletteBlues]
	}
	t = clamp01(t)

	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := pos - float64(i)
	if frac == 0 {
		return stops[i]
	}
	return stops[i].BlendLab(stops[i+1], frac).Clamped()
}

// Extremes returns the lightest and darkest colors of the palette.
func Extremes(p domain.Palette) (colorful.Color, colorful.Color) {
	return Sample(p, 0), Sample(p, 1)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0.5
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
