// Package gridservice orchestrates a grid request: tile addressing,
// two-level cache lookup, throttled datastore fetch on miss, and the
// merged feature set with its serving metadata.
package gridservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
	"github.com/karttaworks/tile-grid-cache/internal/core/observability"
	"github.com/karttaworks/tile-grid-cache/internal/datastore"
	"github.com/karttaworks/tile-grid-cache/internal/fingerprint"
	"github.com/karttaworks/tile-grid-cache/internal/gridpolicy"
	"github.com/karttaworks/tile-grid-cache/internal/throttle"
	"github.com/karttaworks/tile-grid-cache/internal/tiles"
)

// TileCache is the two-level cache contract the service consumes.
type TileCache interface {
	LookupTiles(ctx context.Context, ts []model.TileAddress) (map[model.TileAddress]model.Fingerprint, []model.TileAddress)
	ResolveFingerprints(ctx context.Context, fps []model.Fingerprint) map[model.Fingerprint][]model.Feature
	Store(ctx context.Context, missTiles []model.TileAddress, fp model.Fingerprint, features []model.Feature) error
}

// Result is one served grid response before serialization.
type Result struct {
	Features []model.Feature
	Metadata model.Metadata
}

type Service struct {
	cache    TileCache
	source   datastore.GridSource
	throttle *throttle.Throttle
	logger   *slog.Logger
}

func New(cache TileCache, source datastore.GridSource, th *throttle.Throttle, logger *slog.Logger) *Service {
	return &Service{cache: cache, source: source, throttle: th, logger: logger}
}

// Query runs the request state machine. The returned error is fatal for
// this request only; the caller maps it to an error status with an empty
// feature collection. Nothing is cached on a failed fetch, and partial
// failure never crosses tiles: either the whole miss batch lands or none
// of it does.
func (s *Service) Query(ctx context.Context, q model.GridQuery) (Result, error) {
	start := time.Now()

	policy, ok := gridpolicy.ForZoom(q.Zoom)
	if !ok {
		// no grid at this zoom; bypass addressing, cache and throttle
		return Result{
			Features: []model.Feature{},
			Metadata: s.metadata(0, model.CacheInfo{ZoomLevel: q.Zoom}),
		}, nil
	}

	tileSet := tiles.BoundsToTiles(q.Bounds, q.Zoom)

	hits, _ := s.cache.LookupTiles(ctx, tileSet)

	// resolve distinct fingerprints in first-seen tile order
	var fps []model.Fingerprint
	seen := make(map[model.Fingerprint]struct{})
	for _, t := range tileSet {
		fp, ok := hits[t]
		if !ok {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		fps = append(fps, fp)
	}
	resolved := s.cache.ResolveFingerprints(ctx, fps)

	// a tile is a miss when its index entry is absent or its content
	// expired underneath the index; both re-enter the fetch path
	var misses []model.TileAddress
	for _, t := range tileSet {
		fp, ok := hits[t]
		if !ok {
			misses = append(misses, t)
			continue
		}
		if _, live := resolved[fp]; !live {
			misses = append(misses, t)
		}
	}
	cached := len(tileSet) - len(misses)

	features := make([]model.Feature, 0)
	merged := make(map[model.Fingerprint]struct{})
	for _, fp := range fps {
		feats, live := resolved[fp]
		if !live {
			continue
		}
		merged[fp] = struct{}{}
		features = append(features, feats...)
	}

	if len(misses) == 0 {
		observability.AddCacheHits(cached)
		info := model.CacheInfo{
			Cached:      cached,
			ZoomLevel:   q.Zoom,
			TilesInZoom: model.TileStats{Cached: cached, Total: len(tileSet)},
		}
		s.logger.Info("grid full-hit",
			"zoom", q.Zoom, "grid_type", string(policy.Type),
			"tiles", len(tileSet), "hits", cached,
			"dur", time.Since(start).String())
		return Result{Features: features, Metadata: s.metadata(0, info)}, nil
	}

	// miss branch: the throttle gates every datastore-bound request and
	// must be released on every exit path, including fetch failure
	reqID, delay := s.throttle.Admit()
	defer s.throttle.Release(reqID)

	envelope, _ := tiles.Union(misses)
	fetched, err := s.source.FetchLines(ctx, envelope, policy)
	if err != nil {
		s.logger.Error("datastore fetch failed",
			"zoom", q.Zoom, "grid_type", string(policy.Type),
			"tiles", len(misses), "err", err)
		info := model.CacheInfo{
			ZoomLevel:   q.Zoom,
			TilesInZoom: model.TileStats{Total: len(tileSet)},
		}
		return Result{
			Features: []model.Feature{},
			Metadata: s.metadata(delay, info),
		}, fmt.Errorf("fetch grid lines: %w", err)
	}

	fp := fingerprint.Of(fetched)
	if err := s.cache.Store(ctx, misses, fp, fetched); err != nil {
		s.logger.Warn("cache store failed, serving uncached", "err", err, "tiles", len(misses))
	}

	if _, dup := merged[fp]; !dup {
		features = append(features, fetched...)
	}

	observability.AddCacheHits(cached)
	observability.AddCacheMisses(len(misses))

	info := model.CacheInfo{
		Cached:      cached,
		Queried:     len(misses),
		ZoomLevel:   q.Zoom,
		TilesInZoom: model.TileStats{Cached: cached, Total: len(tileSet)},
	}
	s.logger.Info("grid partial-miss",
		"zoom", q.Zoom, "grid_type", string(policy.Type),
		"tiles", len(tileSet), "hits", cached, "misses", len(misses),
		"delay", delay.String(),
		"dur", time.Since(start).String())
	return Result{Features: features, Metadata: s.metadata(delay, info)}, nil
}

func (s *Service) metadata(delay time.Duration, info model.CacheInfo) model.Metadata {
	return model.Metadata{
		CurrentDelay:   delay.Milliseconds(),
		ActiveRequests: s.throttle.Active(),
		CacheInfo:      info,
	}
}
