// Package tiles maps viewport bounds to slippy-map tile addresses and back.
package tiles

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

// Range is the inclusive tile rectangle covering a viewport at one zoom.
type Range struct {
	Zoom int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

func (r Range) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// RangeForBounds projects the northwest and southeast corners of the
// bounds into the pyramid at zoom and returns the covering rectangle.
// A degenerate (point) viewport yields a single-tile range.
func RangeForBounds(b model.ViewportBounds, zoom int) Range {
	nw := maptile.At(orb.Point{b.West, b.North}, maptile.Zoom(zoom))
	se := maptile.At(orb.Point{b.East, b.South}, maptile.Zoom(zoom))

	limit := int(uint32(1) << uint(zoom))
	return Range{
		Zoom: zoom,
		MinX: clamp(int(nw.X), 0, limit-1),
		MaxX: clamp(int(se.X), 0, limit-1),
		MinY: clamp(int(nw.Y), 0, limit-1),
		MaxY: clamp(int(se.Y), 0, limit-1),
	}
}

// BoundsToTiles enumerates every tile in the covering rectangle in
// row-major order (y ascending, then x ascending). The order is part of
// the contract: downstream cache lookups and tests rely on it.
func BoundsToTiles(b model.ViewportBounds, zoom int) []model.TileAddress {
	r := RangeForBounds(b, zoom)
	out := make([]model.TileAddress, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			out = append(out, model.TileAddress{Zoom: zoom, X: x, Y: y})
		}
	}
	return out
}

// TileToBounds is the inverse projection of a tile footprint back to
// lat/lng. Used for presentation and for building miss envelopes, never
// as a cache key.
func TileToBounds(t model.TileAddress) model.ViewportBounds {
	bound := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Zoom)).Bound()
	return model.ViewportBounds{
		North: bound.Max[1],
		South: bound.Min[1],
		East:  bound.Max[0],
		West:  bound.Min[0],
	}
}

// Union returns the outer lat/lng envelope of the given tile footprints.
// Returns false when the slice is empty.
func Union(ts []model.TileAddress) (model.ViewportBounds, bool) {
	if len(ts) == 0 {
		return model.ViewportBounds{}, false
	}
	env := TileToBounds(ts[0])
	for _, t := range ts[1:] {
		b := TileToBounds(t)
		if b.North > env.North {
			env.North = b.North
		}
		if b.South < env.South {
			env.South = b.South
		}
		if b.East > env.East {
			env.East = b.East
		}
		if b.West < env.West {
			env.West = b.West
		}
	}
	return env, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
