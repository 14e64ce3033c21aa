package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
	"github.com/karttaworks/tile-grid-cache/internal/gridservice"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeQuerier struct {
	got  model.GridQuery
	res  gridservice.Result
	err  error
}

func (f *fakeQuerier) Query(_ context.Context, q model.GridQuery) (gridservice.Result, error) {
	f.got = q
	return f.res, f.err
}

func TestParseGridQuery_AllParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/grid?north=60.1819&south=60.1619&east=24.9514&west=24.9314&zoom=15", nil)
	q := ParseGridQuery(r)
	if q.Zoom != 15 {
		t.Fatalf("zoom=%d", q.Zoom)
	}
	if q.Bounds.North != 60.1819 || q.Bounds.West != 24.9314 {
		t.Fatalf("bounds=%+v", q.Bounds)
	}
}

func TestParseGridQuery_MissingBoundsFallsBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/grid?zoom=12", nil)
	q := ParseGridQuery(r)
	if q.Bounds != fallbackViewport {
		t.Fatalf("missing bounds must fall back, got %+v", q.Bounds)
	}
	if q.Zoom != 12 {
		t.Fatalf("explicit zoom lost: %d", q.Zoom)
	}
}

func TestParseGridQuery_InvalidInputNeverErrors(t *testing.T) {
	cases := []string{
		"/api/grid?north=abc&south=60&east=25&west=24&zoom=15",
		"/api/grid?north=60&south=61&east=25&west=24&zoom=15", // south > north
		"/api/grid?zoom=-3",
		"/api/grid?zoom=banana",
		"/api/grid",
	}
	for _, url := range cases {
		r := httptest.NewRequest(http.MethodGet, url, nil)
		q := ParseGridQuery(r)
		if !q.Bounds.Valid() {
			t.Fatalf("%s: recovered bounds invalid: %+v", url, q.Bounds)
		}
		if q.Zoom < 0 {
			t.Fatalf("%s: recovered zoom negative: %d", url, q.Zoom)
		}
	}
}

func TestHandleGrid_FeatureCollectionShape(t *testing.T) {
	fq := &fakeQuerier{res: gridservice.Result{
		Features: []model.Feature{{
			Name:     "N 60.170",
			Start:    model.LatLng{Lat: 60.170, Lng: 24.93},
			End:      model.LatLng{Lat: 60.170, Lng: 24.95},
			GridType: "medium",
			Style:    model.LineStyle{Color: "#3388ff", DashArray: "15,10", Weight: 2, Opacity: 0.7},
		}},
		Metadata: model.Metadata{
			CurrentDelay:   200,
			ActiveRequests: 1,
			CacheInfo: model.CacheInfo{
				Cached: 2, Queried: 4, ZoomLevel: 15,
				TilesInZoom: model.TileStats{Cached: 2, Total: 6},
			},
		},
	}}

	rr := httptest.NewRecorder()
	HandleGrid(discard(), fq).ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/api/grid?north=60.1819&south=60.1619&east=24.9514&west=24.9314&zoom=15", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	var body struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
		Metadata model.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != "FeatureCollection" {
		t.Fatalf("type=%q", body.Type)
	}
	if len(body.Features) != 1 {
		t.Fatalf("features=%d", len(body.Features))
	}
	f := body.Features[0]
	if f.Geometry.Type != "LineString" || len(f.Geometry.Coordinates) != 2 {
		t.Fatalf("geometry: %+v", f.Geometry)
	}
	// GeoJSON positions are [lng, lat]
	if f.Geometry.Coordinates[0][0] != 24.93 || f.Geometry.Coordinates[0][1] != 60.170 {
		t.Fatalf("coordinate order wrong: %+v", f.Geometry.Coordinates[0])
	}
	if f.Properties["dashArray"] != "15,10" {
		t.Fatalf("properties: %+v", f.Properties)
	}
	if body.Metadata.CacheInfo.Queried != 4 || body.Metadata.CurrentDelay != 200 {
		t.Fatalf("metadata: %+v", body.Metadata)
	}
}

func TestHandleGrid_ErrorServesEmptyCollection(t *testing.T) {
	fq := &fakeQuerier{
		res: gridservice.Result{Features: []model.Feature{}},
		err: errors.New("datastore unreachable"),
	}

	rr := httptest.NewRecorder()
	HandleGrid(discard(), fq).ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/api/grid", nil))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", rr.Code)
	}
	var body struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != "FeatureCollection" || len(body.Features) != 0 {
		t.Fatalf("error body must be an empty collection: %s", rr.Body.String())
	}
}

func TestHandleInfo_ViewportDimensions(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleInfo().ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet,
			"/api/info?north=60.1819&south=60.1619&east=24.9514&west=24.9314&zoom=15", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var body struct {
		Zoom  int `json:"zoom"`
		Tiles struct {
			Zoom int `json:"zoom"`
			X    struct{ Min, Max int }
			Y    struct{ Min, Max int }
		} `json:"tiles"`
		Viewport struct {
			Width    int `json:"width"`
			Height   int `json:"height"`
			Diagonal int `json:"diagonal"`
		} `json:"viewport"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Zoom != 15 || body.Tiles.Zoom != 15 {
		t.Fatalf("zoom echo: %+v", body)
	}
	if body.Tiles.X.Min > body.Tiles.X.Max || body.Tiles.Y.Min > body.Tiles.Y.Max {
		t.Fatalf("tile range inverted: %+v", body.Tiles)
	}
	// 0.02 deg at 60.17N: ~1.1km wide, ~2.2km tall
	if body.Viewport.Width < 900 || body.Viewport.Width > 1300 {
		t.Fatalf("width=%d", body.Viewport.Width)
	}
	if body.Viewport.Height < 2000 || body.Viewport.Height > 2400 {
		t.Fatalf("height=%d", body.Viewport.Height)
	}
	if body.Viewport.Diagonal < body.Viewport.Height {
		t.Fatalf("diagonal %d smaller than height %d", body.Viewport.Diagonal, body.Viewport.Height)
	}
}

func TestHandleInfo_DefaultsAndRecenter(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleInfo().ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/api/info?lat=59.43&lng=24.75", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var body struct {
		Zoom int `json:"zoom"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Zoom != fallbackZoom {
		t.Fatalf("zoom=%d want fallback %d", body.Zoom, fallbackZoom)
	}
}
