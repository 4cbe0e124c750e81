// Package syncproto implements the Sync Protocol of SPEC_FULL.md §4.7: a
// request/response wire format exchanging checksums top-down through the
// Checksum Ladder, descending only where mismatches appear, and a B7
// chapter-send path that runs the Three-Way Merger the way
// original_source/sync/bibles.cpp's sync_bibles_receive_chapter does.
package syncproto

import (
	"fmt"
	"strconv"
	"strings"

	"hhc/scripture-sync/internal/wire"
)

// Field codes, per spec.md §6: short two-letter tokens carrying action,
// user (hex), password hash, role level, bible, book, chapter, old-USFM,
// new-USFM, checksum, identifier, value.
const (
	fieldAction       = "a"
	fieldUser         = "u"
	fieldPasswordHash = "p"
	fieldRoleLevel    = "l"
	fieldBible        = "b"
	fieldBook         = "bk"
	fieldChapter      = "c"
	fieldOldUSFM      = "o"
	fieldNewUSFM      = "n"
	fieldChecksum     = "s"
	fieldIdentifier   = "i"
	fieldValue        = "v"
)

// usfmFields lists the fields that carry raw chapter text and therefore
// need the `<plus/>` transport escape applied/removed.
var usfmFields = map[string]bool{fieldOldUSFM: true, fieldNewUSFM: true}

// EncodeFields renders a field map as the wire body: one `code=value`
// line per field, USFM-carrying fields plus-escaped.
func EncodeFields(fields map[string]string) string {
	var b strings.Builder
	for _, code := range []string{fieldAction, fieldUser, fieldPasswordHash, fieldRoleLevel,
		fieldBible, fieldBook, fieldChapter, fieldOldUSFM, fieldNewUSFM, fieldChecksum, fieldIdentifier, fieldValue} {
		value, ok := fields[code]
		if !ok {
			continue
		}
		if usfmFields[code] {
			value = wire.EscapePlus(value)
		}
		fmt.Fprintf(&b, "%s=%s\n", code, value)
	}
	return b.String()
}

// DecodeFields parses a wire body into a field map, unescaping USFM
// fields back to their literal plus signs.
func DecodeFields(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		code, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if usfmFields[code] {
			value = wire.UnescapePlus(value)
		}
		fields[code] = value
	}
	return fields
}

// EncodeList renders a multi-line response: a checksum on the first
// line, then one item per line.
func EncodeList(checksum string, items []string) string {
	return checksum + "\n" + strings.Join(items, "\n")
}

// DecodeList parses a multi-line response back into its checksum and items.
func DecodeList(body string) (checksum string, items []string) {
	lines := strings.Split(body, "\n")
	if len(lines) == 0 {
		return "", nil
	}
	checksum = lines[0]
	for _, l := range lines[1:] {
		if l != "" {
			items = append(items, l)
		}
	}
	return checksum, items
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
