// Package fingerprint derives the content digest used to dedup feature
// payloads across tiles. Not a security boundary: collisions only cost a
// missed dedup, so a fast non-cryptographic hash is enough.
package fingerprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
)

// Of canonicalizes the feature list and hashes it. Two lists that are
// set-equal and attribute-equal yield the same fingerprint regardless of
// insertion order; cross-request dedup depends on that.
func Of(features []model.Feature) model.Fingerprint {
	lines := make([]string, len(features))
	for i, f := range features {
		lines[i] = canonicalLine(f)
	}
	sort.Strings(lines)
	sum := xxhash.Sum64String(strings.Join(lines, "\n"))
	return model.Fingerprint(strconv.FormatUint(sum, 36))
}

// canonicalLine fixes field order and float precision so formatting can
// never make equal features hash apart.
func canonicalLine(f model.Feature) string {
	return fmt.Sprintf("%s|%.8f,%.8f|%.8f,%.8f|%s|%s|%s|%d|%.3f",
		f.Name,
		f.Start.Lat, f.Start.Lng,
		f.End.Lat, f.End.Lng,
		f.GridType,
		f.Style.Color, f.Style.DashArray, f.Style.Weight, f.Style.Opacity,
	)
}
