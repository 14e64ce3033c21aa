// Package model defines core domain types shared across the service.
package model

import "fmt"

// ViewportBounds is an axis-aligned lat/lng box. North > South and
// East > West always hold; antimeridian wraparound is not supported.
type ViewportBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (b ViewportBounds) Valid() bool {
	return b.North > b.South && b.East > b.West &&
		b.North <= 90 && b.South >= -90 &&
		b.East <= 180 && b.West >= -180
}

// TileAddress identifies one tile of the standard 256-unit slippy pyramid.
type TileAddress struct {
	Zoom int
	X    int
	Y    int
}

func (t TileAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// Fingerprint is a deterministic digest of a feature list, used as the
// dedup key between the tile index and the content store.
type Fingerprint string

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LineStyle carries the stroke attributes bound to a grid type.
type LineStyle struct {
	Color     string  `json:"color"`
	DashArray string  `json:"dashArray,omitempty"`
	Weight    int     `json:"weight"`
	Opacity   float64 `json:"opacity"`
}

// Feature is one grid line: two endpoints plus name and stroke style.
// Immutable once returned by the datastore bridge.
type Feature struct {
	Name     string    `json:"name"`
	Start    LatLng    `json:"start"`
	End      LatLng    `json:"end"`
	GridType string    `json:"gridType"`
	Style    LineStyle `json:"style"`
}

// GridQuery is a validated /api/grid request.
type GridQuery struct {
	Bounds ViewportBounds
	Zoom   int
}

// CacheInfo summarizes how a request was served.
type CacheInfo struct {
	Cached      int       `json:"cached"`
	Queried     int       `json:"queried"`
	ZoomLevel   int       `json:"zoomLevel"`
	TilesInZoom TileStats `json:"tilesInZoom"`
}

type TileStats struct {
	Cached int `json:"cached"`
	Total  int `json:"total"`
}

// Metadata rides along with every grid response. CurrentDelay is the
// throttle delay this request paid, in milliseconds.
type Metadata struct {
	CurrentDelay   int64     `json:"currentDelay"`
	ActiveRequests int       `json:"activeRequests"`
	CacheInfo      CacheInfo `json:"cacheInfo"`
}
