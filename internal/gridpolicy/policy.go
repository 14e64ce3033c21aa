// Package gridpolicy selects grid spacing and stroke style per zoom level.
package gridpolicy

import "github.com/karttaworks/tile-grid-cache/internal/core/model"

// GridType names a spacing/style tier of the grid.
type GridType string

const (
	Fine   GridType = "fine"   // 50 m
	Medium GridType = "medium" // 100 m
	Coarse GridType = "coarse" // 500 m
)

// Policy is the resolved tier for one zoom level.
type Policy struct {
	Type     GridType
	SpacingM int
	Style    model.LineStyle
}

var tiers = []struct {
	minZoom int // exclusive
	policy  Policy
}{
	{17, Policy{Type: Fine, SpacingM: 50, Style: model.LineStyle{
		Color: "#ff9800", DashArray: "10,10", Weight: 1, Opacity: 0.8,
	}}},
	{13, Policy{Type: Medium, SpacingM: 100, Style: model.LineStyle{
		Color: "#3388ff", DashArray: "15,10", Weight: 2, Opacity: 0.7,
	}}},
	{10, Policy{Type: Coarse, SpacingM: 500, Style: model.LineStyle{
		Color: "#d32f2f", Weight: 3, Opacity: 0.6,
	}}},
}

// ForZoom resolves the tier for a zoom level, top tier first. The second
// return is false at zoom <= 10: no grid is drawn there and the whole
// pipeline short-circuits.
func ForZoom(zoom int) (Policy, bool) {
	for _, t := range tiers {
		if zoom > t.minZoom {
			return t.policy, true
		}
	}
	return Policy{}, false
}
