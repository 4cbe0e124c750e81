// Package checksum implements the checksum ladder of SPEC_FULL.md §4.16:
// a stable, transport-only digest composed bible -> book -> chapter,
// letting a sync walk stop at the highest level where two sides agree
// without descending into contents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// width is the number of hex characters kept from the full digest. The
// value is transport-only, not a commitment, so truncating sha256 to 16
// hex chars (64 bits) keeps wire payloads small while collision risk stays
// negligible for a sync-pruning heuristic.
const width = 16

// Hash returns a fixed-length lowercase hex digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:width]
}

// Of composes the checksum of a list of child checksums (or raw strings):
// newline-join them, then hash the join. This is the single composition
// rule used at every level of the ladder (spec.md §6).
func Of(parts []string) string {
	return Hash(strings.Join(parts, "\n"))
}

// OfSorted sorts a copy of parts before composing, for callers whose
// iteration order is not already the canonical sort order.
func OfSorted(parts []string) string {
	sorted := append([]string(nil), parts...)
	sort.Strings(sorted)
	return Of(sorted)
}

// Chapter returns the checksum of one chapter's USFM text. It is stable
// under trailing-newline normalization because callers pass the
// already-trimmed text returned by the Chapter Store.
func Chapter(usfm string) string {
	return Of([]string{usfm})
}

// Book composes a book's checksum from its chapters' checksums, supplied
// in ascending chapter-number order.
func Book(chapterChecksums []string) string {
	return Of(chapterChecksums)
}

// Bible composes a bible's checksum from its books' checksums, supplied in
// canonical book order.
func Bible(bookChecksums []string) string {
	return Of(bookChecksums)
}

// Bibles composes the checksum of a list of bibles, supplied in sorted
// name order; this is the B0 "total checksum" primitive.
func Bibles(bibleChecksums []string) string {
	return Of(bibleChecksums)
}
