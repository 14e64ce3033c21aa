// Package keys builds the namespaced Redis keys used by the two-level
// cache: tile:{z}/{x}/{y} for the tile index and content:{digest} for
// feature payloads.
package keys

import (
	"fmt"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

func Tile(t model.TileAddress) string {
	return fmt.Sprintf("tile:%d/%d/%d", t.Zoom, t.X, t.Y)
}

func Content(fp model.Fingerprint) string {
	return "content:" + string(fp)
}
