package usfm

import (
	"fmt"
	"unicode/utf8"
)

// ChapterStore is the subset of the Chapter Store that safely_store_chapter
// needs. Defined here (rather than imported from internal/chapters) so
// this package stays free of a dependency on the filesystem layer; the
// Save Pipeline and sync server pass internal/chapters.Store values that
// satisfy it.
type ChapterStore interface {
	GetChapter(bible string, book, chapter int) (string, error)
	StoreChapter(bible string, book, chapter int, usfm string) error
}

// Thresholds are the safely-store quality bounds, sourced from config.
type Thresholds struct {
	MaxLineCountDelta int
	MaxLengthDelta    int
}

// SafelyStoreChapter is the gatekeeper of spec.md §4.2: it refuses to
// commit a submission that fails any quality test, returning a
// user-visible message and a diagnostic explanation (both empty on
// success). On success it commits through store.
func SafelyStoreChapter(store ChapterStore, bible string, book, chapter int, submitted string, limits Thresholds) (message, explanation string) {
	if !utf8.ValidString(submitted) {
		return "Save failure", "The text was not valid Unicode UTF-8. The chapter could not be saved and has been reverted to the last good version."
	}

	current, err := store.GetChapter(bible, book, chapter)
	if err != nil {
		return "Save failure", fmt.Sprintf("Could not read the current chapter text for comparison: %v", err)
	}

	if lineDelta := currentLineCount(current) - lineCount(submitted); lineDelta > limits.MaxLineCountDelta {
		return "Save failure", fmt.Sprintf(
			"The number of lines would be reduced by %d, more than the allowed %d. Nothing was saved.",
			lineDelta, limits.MaxLineCountDelta)
	}

	if lengthDelta := len(current) - len(submitted); lengthDelta > limits.MaxLengthDelta {
		return "Save failure", fmt.Sprintf(
			"The text length would be reduced by %d bytes, more than the allowed %d. Nothing was saved.",
			lengthDelta, limits.MaxLengthDelta)
	}

	fragments := Parse(submitted, nil)
	fragment, ok := IsSingleChapter(fragments)
	if !ok {
		return "Incorrect chapter", fmt.Sprintf(
			"The submission did not parse as exactly one chapter; it produced %d fragments.", len(fragments))
	}
	if !(fragment.Book == 0 || fragment.Book == book) || fragment.Chapter != chapter {
		return "Incorrect chapter", fmt.Sprintf(
			"The submission parsed as book %d chapter %d, expected book %d chapter %d.",
			fragment.Book, fragment.Chapter, book, chapter)
	}

	if err := store.StoreChapter(bible, book, chapter, fragment.USFM); err != nil {
		return "Save failure", fmt.Sprintf("Storing the chapter failed: %v", err)
	}
	return "", ""
}

func lineCount(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func currentLineCount(s string) int {
	if s == "" {
		return 0
	}
	return lineCount(s)
}
