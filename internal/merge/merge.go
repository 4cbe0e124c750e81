// Package merge implements the Three-Way Merger of SPEC_FULL.md §4.15: it
// reconciles an ancestor, the current server text and an incoming client
// edit of one USFM chapter, reporting both the merged text and the list
// of conflicts a human can be mailed about.
//
// The line-level diff is built on github.com/sergi/go-diff/diffmatchpatch
// in its line-mode encoding (DiffLinesToRunes / DiffMainRunes /
// DiffCharsToLines), the same idiom used for line-oriented diffing in the
// pack's other_examples src-d-hercules diff.go reference. A second,
// verse-aware pass then re-derives conflicts at verse granularity using
// internal/usfm, per spec.md §4.3.
package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"hhc/scripture-sync/internal/usfm"
)

// Conflict records one point of divergence for the change notification
// mailer, per spec.md §3's Merge Conflict shape.
type Conflict struct {
	Book             int
	Chapter          int
	Subject          string
	AncestorFragment string
	ServerFragment   string
	ClientFragment   string
	ResultFragment   string
}

type hunk struct {
	start, end int // ancestor line range, end exclusive
	newLines   []string
}

// lineOps returns the line-level edit script turning a into b.
func lineOps(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	aEnc, bEnc, lineArray := dmp.DiffLinesToRunes(a, b)
	diffs := dmp.DiffMainRunes(aEnc, bEnc, false)
	diffs = dmp.DiffCleanupMerge(diffs)
	return dmp.DiffCharsToLines(diffs, lineArray)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// hunksFrom converts a diffmatchpatch line-mode edit script into ancestor-
// anchored hunks, pairing an adjacent delete+insert (in either order) into
// a single replacement hunk.
func hunksFrom(ops []diffmatchpatch.Diff) []hunk {
	var hunks []hunk
	cursor := 0
	i := 0
	for i < len(ops) {
		op := ops[i]
		lines := splitLines(op.Text)
		switch op.Type {
		case diffmatchpatch.DiffEqual:
			cursor += len(lines)
			i++
		case diffmatchpatch.DiffDelete:
			start := cursor
			cursor += len(lines)
			i++
			var newLines []string
			if i < len(ops) && ops[i].Type == diffmatchpatch.DiffInsert {
				newLines = splitLines(ops[i].Text)
				i++
			}
			hunks = append(hunks, hunk{start: start, end: cursor, newLines: newLines})
		case diffmatchpatch.DiffInsert:
			start := cursor
			newLines := lines
			i++
			end := cursor
			if i < len(ops) && ops[i].Type == diffmatchpatch.DiffDelete {
				delLines := splitLines(ops[i].Text)
				end = cursor + len(delLines)
				cursor = end
				i++
			}
			hunks = append(hunks, hunk{start: start, end: end, newLines: newLines})
		}
	}
	return hunks
}

func joinHunkText(hunks []hunk, idxs []int) string {
	var lines []string
	for _, idx := range idxs {
		lines = append(lines, hunks[idx].newLines...)
	}
	return strings.Join(lines, "\n")
}

func isVerseZone(texts ...string) bool {
	for _, t := range texts {
		if strings.Contains(t, "\\v ") {
			return true
		}
	}
	return false
}

// mergeLines performs the first, line-level pass: apply both edit scripts
// to the ancestor, taking both sides where they touch disjoint spans and
// the preferred side where spans overlap, per spec.md §4.3.
func mergeLines(ancestorLines []string, hunksAS, hunksAC []hunk, preferClient bool) (merged []string, conflicts []Conflict) {
	// linesOf gathers the replacement lines of the given hunks; a pure
	// deletion contributes no line at all.
	linesOf := func(hunks []hunk, idxs []int) []string {
		var lines []string
		for _, idx := range idxs {
			lines = append(lines, hunks[idx].newLines...)
		}
		return lines
	}
	cursor, iS, iC := 0, 0, 0
	for cursor < len(ancestorLines) || iS < len(hunksAS) || iC < len(hunksAC) {
		nextS, nextC := len(ancestorLines), len(ancestorLines)
		if iS < len(hunksAS) {
			nextS = hunksAS[iS].start
		}
		if iC < len(hunksAC) {
			nextC = hunksAC[iC].start
		}
		at := min(nextS, nextC)

		if cursor < at {
			merged = append(merged, ancestorLines[cursor:at]...)
			cursor = at
			continue
		}

		if iS >= len(hunksAS) && iC >= len(hunksAC) {
			break
		}

		clusterEnd := cursor
		var sIdxs, cIdxs []int
		if iS < len(hunksAS) && hunksAS[iS].start == cursor {
			sIdxs = append(sIdxs, iS)
			clusterEnd = max(clusterEnd, hunksAS[iS].end)
			iS++
		}
		if iC < len(hunksAC) && hunksAC[iC].start == cursor {
			cIdxs = append(cIdxs, iC)
			clusterEnd = max(clusterEnd, hunksAC[iC].end)
			iC++
		}
		// Pull in any further hunk that genuinely overlaps the cluster so
		// far (strict: adjacent, merely touching hunks stay disjoint).
		for {
			advanced := false
			if iS < len(hunksAS) && hunksAS[iS].start < clusterEnd {
				sIdxs = append(sIdxs, iS)
				clusterEnd = max(clusterEnd, hunksAS[iS].end)
				iS++
				advanced = true
			}
			if iC < len(hunksAC) && hunksAC[iC].start < clusterEnd {
				cIdxs = append(cIdxs, iC)
				clusterEnd = max(clusterEnd, hunksAC[iC].end)
				iC++
				advanced = true
			}
			if !advanced {
				break
			}
		}
		clusterStart := cursor
		cursor = clusterEnd

		ancestorFrag := strings.Join(ancestorLines[clusterStart:min(clusterEnd, len(ancestorLines))], "\n")

		switch {
		case len(sIdxs) == 0:
			merged = append(merged, linesOf(hunksAC, cIdxs)...)
		case len(cIdxs) == 0:
			merged = append(merged, linesOf(hunksAS, sIdxs)...)
		default:
			serverText := joinHunkText(hunksAS, sIdxs)
			clientText := joinHunkText(hunksAC, cIdxs)
			if serverText == clientText {
				merged = append(merged, linesOf(hunksAS, sIdxs)...)
				continue
			}
			chosen, chosenLines := serverText, linesOf(hunksAS, sIdxs)
			if preferClient {
				chosen, chosenLines = clientText, linesOf(hunksAC, cIdxs)
			}
			merged = append(merged, chosenLines...)
			if !isVerseZone(ancestorFrag, serverText, clientText) {
				conflicts = append(conflicts, Conflict{
					Subject:          "markup",
					AncestorFragment: ancestorFrag,
					ServerFragment:   serverText,
					ClientFragment:   clientText,
					ResultFragment:   chosen,
				})
			}
		}
	}
	return merged, conflicts
}

func splitLinesOrEmpty(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// verseAwarePass walks every verse present on either the server or the
// client side. Where both sides changed a verse's text relative to the
// ancestor, it confirms the preferred side's verse text in the merged
// output and records a verse-level conflict, independent of what the
// line-level pass already decided for that span (spec.md §4.3).
func verseAwarePass(merged, ancestor, server, client string, book, chapter int, preferClient bool) (string, []Conflict) {
	seen := map[int]bool{}
	var order []int
	for _, v := range append(usfm.GetVerseNumbers(server), usfm.GetVerseNumbers(client)...) {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
	}

	var conflicts []Conflict
	for _, v := range order {
		ancestorText := usfm.GetVerseText(ancestor, v)
		serverText := usfm.GetVerseText(server, v)
		clientText := usfm.GetVerseText(client, v)
		if serverText == "" && clientText == "" {
			continue
		}
		if serverText == ancestorText || clientText == ancestorText || serverText == clientText {
			continue
		}
		chosen := serverText
		if preferClient {
			chosen = clientText
		}
		merged = replaceVerseText(merged, v, chosen)
		conflicts = append(conflicts, Conflict{
			Book:             book,
			Chapter:          chapter,
			Subject:          verseSubject(v),
			AncestorFragment: ancestorText,
			ServerFragment:   serverText,
			ClientFragment:   clientText,
			ResultFragment:   chosen,
		})
	}
	return merged, conflicts
}

func verseSubject(v int) string {
	if v == 0 {
		return "front matter"
	}
	return "verse"
}

// replaceVerseText rewrites the text following \v N (or a combined marker
// covering N) with newText, leaving the marker itself untouched.
func replaceVerseText(chapterUSFM string, verse int, newText string) string {
	lines := strings.Split(chapterUSFM, "\n")
	for i, line := range lines {
		m := verseMarkerPrefix(line)
		if m == "" {
			continue
		}
		if !markerCoversVerse(m, verse) {
			continue
		}
		lines[i] = "\\v " + m + " " + newText
		// Remove any continuation lines that belonged to the old text, up
		// to the next marker line, replacing them with nothing: the new
		// text is kept single-line, matching the confirmed side's fragment.
		j := i + 1
		for j < len(lines) && verseMarkerPrefix(lines[j]) == "" && !strings.HasPrefix(strings.TrimSpace(lines[j]), "\\") {
			lines = append(lines[:j], lines[j+1:]...)
		}
		break
	}
	return strings.Join(lines, "\n")
}

func verseMarkerPrefix(line string) string {
	const prefix = "\\v "
	if !strings.HasPrefix(strings.TrimSpace(line), prefix) {
		return ""
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func markerCoversVerse(field string, verse int) bool {
	for _, n := range usfm.GetVerseNumbers("\\v " + field + " x") {
		if n == verse {
			return true
		}
	}
	return false
}

// Merge performs the full two-pass three-way merge of spec.md §4.3 over
// one chapter's USFM. preferClient selects which side wins a genuine
// conflict; the losing side is always reported back via conflicts for the
// caller to mail.
func Merge(ancestor, server, client string, preferClient bool) (string, []Conflict) {
	ancestorLines := splitLines(ancestor)

	hunksAS := hunksFrom(lineOps(ancestor, server))
	hunksAC := hunksFrom(lineOps(ancestor, client))

	mergedLines, lineConflicts := mergeLines(ancestorLines, hunksAS, hunksAC, preferClient)
	merged := strings.Join(mergedLines, "\n")
	merged = preserveHeader(merged, server, client, preferClient)

	book, chapter := headerBookChapter(server, client, preferClient)
	merged, verseConflicts := verseAwarePass(merged, ancestor, server, client, book, chapter, preferClient)

	if !strings.HasSuffix(merged, "\n") {
		merged += "\n"
	}

	conflicts := append(lineConflicts, verseConflicts...)
	for i := range conflicts {
		conflicts[i].Book = book
		conflicts[i].Chapter = chapter
	}
	return merged, conflicts
}

func headerBookChapter(server, client string, preferClient bool) (int, int) {
	preferred, other := server, client
	if preferClient {
		preferred, other = client, server
	}
	if frag, ok := usfm.IsSingleChapter(usfm.Parse(preferred, nil)); ok {
		return frag.Book, frag.Chapter
	}
	if frag, ok := usfm.IsSingleChapter(usfm.Parse(other, nil)); ok {
		return frag.Book, frag.Chapter
	}
	return 0, 0
}

// preserveHeader makes sure the merged text's \c header line (\id lines
// are not considered)
// matches the preferred side's header when present, per spec.md §4.3's
// "book/chapter header preserved from the preferred side if present,
// else from the other side."
func preserveHeader(merged, server, client string, preferClient bool) string {
	preferred, other := server, client
	if preferClient {
		preferred, other = client, server
	}
	want := headerLine(preferred)
	if want == "" {
		want = headerLine(other)
	}
	if want == "" {
		return merged
	}
	lines := strings.Split(merged, "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "\\c ") {
		lines[0] = want
		return strings.Join(lines, "\n")
	}
	return strings.Join(append([]string{want}, lines...), "\n")
}

func headerLine(usfmText string) string {
	for _, line := range strings.Split(usfmText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "\\c ") {
			return line
		}
	}
	return ""
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
