// Package contentstore persists the short-lived half of the two-level
// cache: content fingerprint -> feature payload. A small in-process
// expirable LRU sits in front of Redis so repeated resolutions of a hot
// fingerprint skip the network. The front is populated only on writes,
// with the same TTL as the Redis entry, so it never outlives the store.
package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/karttaworks/tile-grid-cache/internal/cache/keys"
	"github.com/karttaworks/tile-grid-cache/internal/cache/redisstore"
	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

type ContentStore interface {
	GetFeatures(ctx context.Context, fps []model.Fingerprint) (map[model.Fingerprint][]model.Feature, error)

	PutFeatures(ctx context.Context, fp model.Fingerprint, features []model.Feature, ttl time.Duration) error
}

type redisContentStore struct {
	cli   *redisstore.Client
	local *expirable.LRU[string, []byte]
}

// NewRedisStore builds a store whose local front holds up to localSize
// payloads for at most localTTL.
func NewRedisStore(cli *redisstore.Client, localSize int, localTTL time.Duration) ContentStore {
	var local *expirable.LRU[string, []byte]
	if localSize > 0 {
		local = expirable.NewLRU[string, []byte](localSize, nil, localTTL)
	}
	return &redisContentStore{cli: cli, local: local}
}

func (s *redisContentStore) GetFeatures(
	ctx context.Context,
	fps []model.Fingerprint,
) (map[model.Fingerprint][]model.Feature, error) {
	if len(fps) == 0 {
		return map[model.Fingerprint][]model.Feature{}, nil
	}

	out := make(map[model.Fingerprint][]model.Feature, len(fps))
	var pending []model.Fingerprint
	for _, fp := range fps {
		if s.local != nil {
			if raw, ok := s.local.Get(keys.Content(fp)); ok {
				feats, err := decode(raw)
				if err == nil {
					out[fp] = feats
					continue
				}
				s.local.Remove(keys.Content(fp))
			}
		}
		pending = append(pending, fp)
	}
	if len(pending) == 0 {
		return out, nil
	}

	ks := make([]string, len(pending))
	for i, fp := range pending {
		ks[i] = keys.Content(fp)
	}
	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("contentstore redis MGET %d keys: %w", len(ks), err)
	}

	for i, fp := range pending {
		body, ok := raw[ks[i]]
		if !ok || len(body) == 0 {
			continue // absent or expired: caller treats the tile as a miss
		}
		feats, err := decode(body)
		if err != nil {
			return nil, fmt.Errorf("contentstore decode %q: %w", ks[i], err)
		}
		out[fp] = feats
	}
	return out, nil
}

func (s *redisContentStore) PutFeatures(
	ctx context.Context,
	fp model.Fingerprint,
	features []model.Feature,
	ttl time.Duration,
) error {
	body, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("contentstore encode features: %w", err)
	}

	k := keys.Content(fp)
	if err := s.cli.Set(ctx, k, body, ttl); err != nil {
		return fmt.Errorf("contentstore redis SET %q: %w", k, err)
	}
	if s.local != nil {
		s.local.Add(k, body)
	}
	return nil
}

func decode(raw []byte) ([]model.Feature, error) {
	var feats []model.Feature
	if err := json.Unmarshal(raw, &feats); err != nil {
		return nil, err
	}
	return feats, nil
}
