package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
	"github.com/karttaworks/tile-grid-cache/internal/core/observability"
	"github.com/karttaworks/tile-grid-cache/internal/geo"
	"github.com/karttaworks/tile-grid-cache/internal/gridservice"
	"github.com/karttaworks/tile-grid-cache/internal/tiles"
)

// Fallback viewport and zoom used whenever bounds or zoom are missing or
// malformed. Bad input is recovered locally, never surfaced as an error.
var fallbackViewport = model.ViewportBounds{
	North: 60.1819, South: 60.1619,
	East: 24.9514, West: 24.9314,
}

const fallbackZoom = 15

// GridQuerier serves validated grid queries.
type GridQuerier interface {
	Query(ctx context.Context, q model.GridQuery) (gridservice.Result, error)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HandleGrid serves GET /api/grid.
func HandleGrid(logger *slog.Logger, svc GridQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q := ParseGridQuery(r)
		res, err := svc.Query(r.Context(), q)
		if err != nil {
			logger.Error("grid query failed", "err", err)
			writeCollection(sw, http.StatusBadGateway, res)
		} else {
			writeCollection(sw, http.StatusOK, res)
		}
		observability.ObserveHTTP(r.Method, "/api/grid", sw.code, time.Since(start).Seconds())
	}
}

// ParseGridQuery recovers every malformed or missing parameter with the
// fallback viewport and zoom.
func ParseGridQuery(r *http.Request) model.GridQuery {
	q := r.URL.Query()
	bounds, ok := parseBounds(q.Get("north"), q.Get("south"), q.Get("east"), q.Get("west"))
	if !ok {
		bounds = fallbackViewport
	}
	zoom, ok := parseZoom(q.Get("zoom"))
	if !ok {
		zoom = fallbackZoom
	}
	return model.GridQuery{Bounds: bounds, Zoom: zoom}
}

func parseBounds(north, south, east, west string) (model.ViewportBounds, bool) {
	n, errN := parseFloat(north)
	s, errS := parseFloat(south)
	e, errE := parseFloat(east)
	w, errW := parseFloat(west)
	if errN != nil || errS != nil || errE != nil || errW != nil {
		return model.ViewportBounds{}, false
	}
	b := model.ViewportBounds{North: n, South: s, East: e, West: w}
	if !b.Valid() {
		return model.ViewportBounds{}, false
	}
	return b, true
}

func parseZoom(raw string) (int, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	z, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || z < 0 {
		return 0, false
	}
	return z, true
}

func parseFloat(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

type gridResponse struct {
	Type     string         `json:"type"`
	Features []*geoFeature  `json:"features"`
	Metadata model.Metadata `json:"metadata"`
}

type geoFeature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

func writeCollection(w http.ResponseWriter, status int, res gridservice.Result) {
	out := gridResponse{
		Type:     "FeatureCollection",
		Features: make([]*geoFeature, 0, len(res.Features)),
		Metadata: res.Metadata,
	}
	for _, f := range res.Features {
		line := orb.LineString{
			{f.Start.Lng, f.Start.Lat},
			{f.End.Lng, f.End.Lat},
		}
		props := map[string]any{
			"name":     f.Name,
			"gridType": f.GridType,
			"color":    f.Style.Color,
			"weight":   f.Style.Weight,
			"opacity":  f.Style.Opacity,
		}
		if f.Style.DashArray != "" {
			props["dashArray"] = f.Style.DashArray
		}
		out.Features = append(out.Features, &geoFeature{
			Type:       "Feature",
			Geometry:   geojson.NewGeometry(line),
			Properties: props,
		})
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

type infoResponse struct {
	Zoom     int          `json:"zoom"`
	Tiles    tileInfo     `json:"tiles"`
	Viewport viewportInfo `json:"viewport"`
}

type tileInfo struct {
	Zoom int     `json:"zoom"`
	X    minMax  `json:"x"`
	Y    minMax  `json:"y"`
}

type minMax struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type viewportInfo struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Diagonal int `json:"diagonal"`
}

// HandleInfo serves GET /api/info: the tile range addressed by the
// viewport plus its dimensions in meters.
func HandleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q := r.URL.Query()
		bounds, ok := parseBounds(q.Get("north"), q.Get("south"), q.Get("east"), q.Get("west"))
		if !ok {
			bounds = fallbackViewport
			// recenter on the requested point when one was given
			if lat, errLat := parseFloat(q.Get("lat")); errLat == nil {
				if lng, errLng := parseFloat(q.Get("lng")); errLng == nil {
					bounds = recenter(fallbackViewport, lat, lng)
				}
			}
		}
		zoom, ok := parseZoom(q.Get("zoom"))
		if !ok {
			zoom = fallbackZoom
		}

		rng := tiles.RangeForBounds(bounds, zoom)
		out := infoResponse{
			Zoom: zoom,
			Tiles: tileInfo{
				Zoom: rng.Zoom,
				X:    minMax{Min: rng.MinX, Max: rng.MaxX},
				Y:    minMax{Min: rng.MinY, Max: rng.MaxY},
			},
			Viewport: viewportInfo{
				Width:    round(geo.Haversine(bounds.North, bounds.West, bounds.North, bounds.East)),
				Height:   round(geo.Haversine(bounds.North, bounds.West, bounds.South, bounds.West)),
				Diagonal: round(geo.Haversine(bounds.North, bounds.West, bounds.South, bounds.East)),
			},
		}

		sw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(sw).Encode(out)
		observability.ObserveHTTP(r.Method, "/api/info", sw.code, time.Since(start).Seconds())
	}
}

func recenter(b model.ViewportBounds, lat, lng float64) model.ViewportBounds {
	halfLat := (b.North - b.South) / 2
	halfLng := (b.East - b.West) / 2
	return model.ViewportBounds{
		North: lat + halfLat, South: lat - halfLat,
		East: lng + halfLng, West: lng - halfLng,
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
