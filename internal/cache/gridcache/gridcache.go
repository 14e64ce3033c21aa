// Package gridcache composes the tile index and the content store into
// the two-level cache the grid service talks to.
//
// Lookup never fails hard: a Redis outage degrades to a universal miss so
// the request can still be served from the datastore.
package gridcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/karttaworks/tile-grid-cache/internal/cache/contentstore"
	"github.com/karttaworks/tile-grid-cache/internal/cache/redisstore"
	"github.com/karttaworks/tile-grid-cache/internal/cache/tileindex"
	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

// TTLConfig keeps the two expirations independently configurable. The
// defaults preserve the historical asymmetry (index entries outlive their
// content); the "index hit, content miss" path in Resolve exists because
// of it and must stay a first-class miss, never a dropped tile.
type TTLConfig struct {
	Content   time.Duration // fingerprint -> features
	TileIndex time.Duration // tile -> fingerprint
}

type Store struct {
	Index   tileindex.Index
	Content contentstore.ContentStore

	ttl    TTLConfig
	logger *slog.Logger
}

func New(cli *redisstore.Client, ttl TTLConfig, localSize int, logger *slog.Logger) *Store {
	return &Store{
		Index:   tileindex.NewRedisIndex(cli),
		Content: contentstore.NewRedisStore(cli, localSize, ttl.Content),
		ttl:     ttl,
		logger:  logger,
	}
}

// NewWithParts is the seam used by tests to inject store doubles.
func NewWithParts(ix tileindex.Index, cs contentstore.ContentStore, ttl TTLConfig, logger *slog.Logger) *Store {
	return &Store{Index: ix, Content: cs, ttl: ttl, logger: logger}
}

// LookupTiles partitions the tile set into hits (with their fingerprint)
// and misses, preserving the caller's tile order in the miss slice. Cache
// unavailability turns every tile into a miss.
func (s *Store) LookupTiles(
	ctx context.Context,
	tiles []model.TileAddress,
) (map[model.TileAddress]model.Fingerprint, []model.TileAddress) {
	hits, err := s.Index.GetFingerprints(ctx, tiles)
	if err != nil {
		s.logger.Warn("tile index lookup failed, continuing with fetch path", "err", err, "tiles", len(tiles))
		return map[model.TileAddress]model.Fingerprint{}, tiles
	}

	misses := make([]model.TileAddress, 0, len(tiles)-len(hits))
	for _, t := range tiles {
		if _, ok := hits[t]; !ok {
			misses = append(misses, t)
		}
	}
	return hits, misses
}

// ResolveFingerprints loads payloads for the distinct fingerprints hit by
// the index. Fingerprints without a live payload are absent from the
// result; the caller must demote their tiles to misses. A store error
// resolves nothing, for the same reason LookupTiles never fails hard.
func (s *Store) ResolveFingerprints(
	ctx context.Context,
	fps []model.Fingerprint,
) map[model.Fingerprint][]model.Feature {
	found, err := s.Content.GetFeatures(ctx, fps)
	if err != nil {
		s.logger.Warn("content resolution failed, demoting hits to misses", "err", err, "fingerprints", len(fps))
		return map[model.Fingerprint][]model.Feature{}
	}
	return found
}

// Store persists one fetched batch: the payload under its fingerprint,
// then every miss tile pointing at that fingerprint. Writes are
// idempotent and last-write-wins; concurrent requests racing on the same
// tiles derive identical content from the same backing data.
func (s *Store) Store(
	ctx context.Context,
	missTiles []model.TileAddress,
	fp model.Fingerprint,
	features []model.Feature,
) error {
	if err := s.Content.PutFeatures(ctx, fp, features, s.ttl.Content); err != nil {
		return err
	}
	if err := s.Index.SetFingerprints(ctx, missTiles, fp, s.ttl.TileIndex); err != nil {
		return err
	}
	return nil
}
