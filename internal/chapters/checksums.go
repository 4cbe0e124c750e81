package chapters

import (
	"strconv"

	"hhc/scripture-sync/internal/checksum"
)

// ChapterChecksum returns the checksum of one chapter's current text.
func (s *Store) ChapterChecksum(bible string, book, chapter int) (string, error) {
	text, err := s.GetChapter(bible, book, chapter)
	if err != nil {
		return "", err
	}
	return checksum.Chapter(text), nil
}

// BookChecksum composes a book's checksum from its chapters', in
// ascending chapter-number order, per the Checksum Ladder of spec.md §6.
func (s *Store) BookChecksum(bible string, book int) (string, error) {
	chapterNums, err := s.ListChapters(bible, book)
	if err != nil {
		return "", err
	}
	sums := make([]string, 0, len(chapterNums))
	for _, c := range chapterNums {
		sum, err := s.ChapterChecksum(bible, book, c)
		if err != nil {
			return "", err
		}
		sums = append(sums, sum)
	}
	return checksum.Book(sums), nil
}

// BibleChecksum composes a Bible's checksum from its books', in
// canonical book order.
func (s *Store) BibleChecksum(bible string) (string, error) {
	books, err := s.ListBooks(bible)
	if err != nil {
		return "", err
	}
	sums := make([]string, 0, len(books))
	for _, b := range books {
		sum, err := s.BookChecksum(bible, b)
		if err != nil {
			return "", err
		}
		sums = append(sums, sum)
	}
	return checksum.Bible(sums), nil
}

// TotalChecksum composes the checksum of the given set of bibles, in
// sorted name order; this is the B0 "total checksum" primitive.
func (s *Store) TotalChecksum(bibles []string) (string, error) {
	sums := make([]string, 0, len(bibles))
	for _, b := range bibles {
		sum, err := s.BibleChecksum(b)
		if err != nil {
			return "", err
		}
		sums = append(sums, sum)
	}
	return checksum.Bibles(sums), nil
}

// ItoaSlice renders a list of integers as strings, for callers building
// a checksum-ladder list payload (book or chapter numbers).
func ItoaSlice(nums []int) []string {
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out
}
