package usfm

import "sort"

// BookIDs maps the three-letter USFM \id code to the well-known integer
// book identifier described in spec.md §3 ("values are well-known, e.g.
// 1=Genesis, 40=Matthew"). The canonical display order equals the
// identifier itself for this 66-book Protestant canon, which is what
// database/bibles.cpp's get_order_from_id ultimately resolves to for the
// common case this core targets.
var BookIDs = map[string]int{
	"GEN": 1, "EXO": 2, "LEV": 3, "NUM": 4, "DEU": 5,
	"JOS": 6, "JDG": 7, "RUT": 8, "1SA": 9, "2SA": 10,
	"1KI": 11, "2KI": 12, "1CH": 13, "2CH": 14, "EZR": 15,
	"NEH": 16, "EST": 17, "JOB": 18, "PSA": 19, "PRO": 20,
	"ECC": 21, "SNG": 22, "ISA": 23, "JER": 24, "LAM": 25,
	"EZK": 26, "DAN": 27, "HOS": 28, "JOL": 29, "AMO": 30,
	"OBA": 31, "JON": 32, "MIC": 33, "NAM": 34, "HAB": 35,
	"ZEP": 36, "HAG": 37, "ZEC": 38, "MAL": 39,
	"MAT": 40, "MRK": 41, "LUK": 42, "JHN": 43, "ACT": 44,
	"ROM": 45, "1CO": 46, "2CO": 47, "GAL": 48, "EPH": 49,
	"PHP": 50, "COL": 51, "1TH": 52, "2TH": 53, "1TI": 54,
	"2TI": 55, "TIT": 56, "PHM": 57, "HEB": 58, "JAS": 59,
	"1PE": 60, "2PE": 61, "1JN": 62, "2JN": 63, "3JN": 64,
	"JUD": 65, "REV": 66,
}

// bookCodes is the inverse of BookIDs, built once at init time.
var bookCodes = func() map[int]string {
	m := make(map[int]string, len(BookIDs))
	for code, id := range BookIDs {
		m[id] = code
	}
	return m
}()

// CodeFromID returns the three-letter \id code for a book identifier, or
// "" if unknown.
func CodeFromID(id int) string {
	return bookCodes[id]
}

// IDFromCode returns the well-known integer identifier for a three-letter
// \id code, and whether it was recognized.
func IDFromCode(code string) (int, bool) {
	id, ok := BookIDs[code]
	return id, ok
}

// CanonicalOrder returns the display-sort key for a book id. Unknown ids
// sort after every known one, in ascending id order among themselves.
func CanonicalOrder(id int) int {
	if id >= 1 && id <= 66 {
		return id
	}
	return 1000 + id
}

// SortBooks sorts book identifiers into canonical display order, per
// spec.md §4.1 list_books.
func SortBooks(ids []int) {
	sort.Slice(ids, func(i, j int) bool {
		return CanonicalOrder(ids[i]) < CanonicalOrder(ids[j])
	})
}
