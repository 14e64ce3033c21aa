// Package datastore defines the contract to the backing spatial store.
package datastore

import (
	"context"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
	"github.com/karttaworks/tile-grid-cache/internal/gridpolicy"
)

// GridSource fetches all grid lines of one type intersecting an
// envelope. Implementations must never partially apply results: any
// error fails the whole fetch. This is the only component that performs
// I/O against the datastore.
type GridSource interface {
	FetchLines(ctx context.Context, envelope model.ViewportBounds, policy gridpolicy.Policy) ([]model.Feature, error)
}
