// Package tileindex persists the long-lived half of the two-level cache:
// tile address -> content fingerprint.
package tileindex

import (
	"context"
	"fmt"
	"time"

	"github.com/karttaworks/tile-grid-cache/internal/cache/keys"
	"github.com/karttaworks/tile-grid-cache/internal/cache/redisstore"
	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

type Index interface {
	GetFingerprints(ctx context.Context, tiles []model.TileAddress) (map[model.TileAddress]model.Fingerprint, error)

	SetFingerprints(ctx context.Context, tiles []model.TileAddress, fp model.Fingerprint, ttl time.Duration) error
}

type redisIndex struct {
	cli *redisstore.Client
}

func NewRedisIndex(cli *redisstore.Client) Index {
	return &redisIndex{cli: cli}
}

func (ix *redisIndex) GetFingerprints(
	ctx context.Context,
	tiles []model.TileAddress,
) (map[model.TileAddress]model.Fingerprint, error) {
	if len(tiles) == 0 {
		return map[model.TileAddress]model.Fingerprint{}, nil
	}

	ks := make([]string, len(tiles))
	for i, t := range tiles {
		ks[i] = keys.Tile(t)
	}

	raw, err := ix.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("tileindex redis MGET %d keys: %w", len(ks), err)
	}

	out := make(map[model.TileAddress]model.Fingerprint, len(raw))
	for i, t := range tiles {
		if v, ok := raw[ks[i]]; ok && len(v) > 0 {
			out[t] = model.Fingerprint(v)
		}
	}
	return out, nil
}

func (ix *redisIndex) SetFingerprints(
	ctx context.Context,
	tiles []model.TileAddress,
	fp model.Fingerprint,
	ttl time.Duration,
) error {
	if len(tiles) == 0 {
		return nil
	}

	kv := make(map[string][]byte, len(tiles))
	for _, t := range tiles {
		kv[keys.Tile(t)] = []byte(fp)
	}
	if err := ix.cli.MSetWithTTL(ctx, kv, ttl); err != nil {
		return fmt.Errorf("tileindex redis MSET %d tiles: %w", len(kv), err)
	}
	return nil
}
