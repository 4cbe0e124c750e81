package usfm

import (
	"regexp"
	"strconv"
	"strings"
)

var verseMarker = regexp.MustCompile(`\\v\s+(\S+)(.*)`)

// parseVerseMembers expands a verse marker's numeral field into every
// integer it covers: a plain integer, a hyphen-joined range (2-3 -> 2,3),
// or a comma-joined set (4,5 -> 4,5), per spec.md §4.2.
func parseVerseMembers(field string) []int {
	var members []int
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := splitRange(part); ok {
			for n := lo; n <= hi; n++ {
				members = append(members, n)
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			members = append(members, n)
		}
	}
	return members
}

func splitRange(s string) (lo, hi int, ok bool) {
	idx := strings.IndexByte(s, '-')
	if idx <= 0 || idx == len(s)-1 {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(s[:idx])
	b, errB := strconv.Atoi(s[idx+1:])
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

// GetVerseNumbers returns every verse number present in a chapter's USFM,
// including 0 for any pre-first-verse front matter and every member of a
// combined verse marker, per spec.md §4.2.
func GetVerseNumbers(chapterUSFM string) []int {
	numbers := []int{0}
	for _, line := range strings.Split(chapterUSFM, "\n") {
		m := verseMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		numbers = append(numbers, parseVerseMembers(m[1])...)
	}
	return numbers
}

// GetVerseText returns the text belonging to one verse marker, including
// intra-verse markup, per spec.md §4.2. A combined verse marker's text is
// returned for every integer it covers ("contains verse N" is satisfied
// for all members of the combined set). Verse 0 returns any text found
// before the first \v marker. Absent verses return "".
func GetVerseText(chapterUSFM string, verse int) string {
	lines := strings.Split(chapterUSFM, "\n")

	if verse == 0 {
		var buf []string
		for _, line := range lines {
			if verseMarker.MatchString(line) {
				break
			}
			if strings.HasPrefix(strings.TrimSpace(line), "\\c ") {
				continue
			}
			buf = append(buf, line)
		}
		return strings.TrimSpace(strings.Join(buf, "\n"))
	}

	for i, line := range lines {
		m := verseMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		members := parseVerseMembers(m[1])
		if !containsInt(members, verse) {
			continue
		}
		var buf []string
		buf = append(buf, strings.TrimSpace(m[2]))
		for j := i + 1; j < len(lines); j++ {
			if verseMarker.MatchString(lines[j]) {
				break
			}
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "\\c ") {
				break
			}
			buf = append(buf, lines[j])
		}
		return strings.TrimSpace(strings.Join(buf, "\n"))
	}
	return ""
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
