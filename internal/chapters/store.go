// Package chapters implements the append-only, filesystem-backed Chapter
// Store of SPEC_FULL.md §4.1: one directory per Bible, one subdirectory
// per book and chapter, and one file per revision named by an increasing
// integer id. It is grounded directly on bibledit's
// database/bibles.cpp, which stores scripture text the same way and for
// the same reason: no real database means no database to corrupt.
package chapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"hhc/scripture-sync/internal/usfm"
)

// NoRevision is the sentinel get_chapter_id and get_chapter_age return
// when a chapter has never been stored, per spec.md §4.1.
const NoRevision = 100000000

// Store is a filesystem-backed Chapter Store rooted at one directory.
type Store struct {
	root string

	// locksMu guards locks itself, not chapter content; locks holds one
	// RWMutex per (bible,book,chapter) so StoreChapter's
	// write-new-revision-then-scan sequence is serialized per chapter
	// while readers of other chapters never block, per spec.md §5.
	locksMu sync.Mutex
	locks   map[string]*sync.RWMutex
}

// New returns a Store rooted at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create chapter store root: %w", err)
	}
	return &Store{root: root, locks: make(map[string]*sync.RWMutex)}, nil
}

func (s *Store) bibleFolder(bible string) string {
	return filepath.Join(s.root, bible)
}

func (s *Store) bookFolder(bible string, book int) string {
	return filepath.Join(s.bibleFolder(bible), strconv.Itoa(book))
}

func (s *Store) chapterFolder(bible string, book, chapter int) string {
	return filepath.Join(s.bookFolder(bible, book), strconv.Itoa(chapter))
}

// chapterLock returns the RWMutex for one (bible,book,chapter), creating
// it on first use.
func (s *Store) chapterLock(bible string, book, chapter int) *sync.RWMutex {
	key := fmt.Sprintf("%s/%d/%d", bible, book, chapter)
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[key] = lock
	}
	return lock
}

// ListBibles returns the names of every Bible in the store.
func (s *Store) ListBibles() ([]string, error) {
	return scanDir(s.root, nil)
}

// CreateBible creates a new, empty Bible.
func (s *Store) CreateBible(bible string) error {
	return os.MkdirAll(s.bibleFolder(bible), 0755)
}

// DeleteBible permanently removes a Bible and every revision it holds.
func (s *Store) DeleteBible(bible string) error {
	return os.RemoveAll(s.bibleFolder(bible))
}

// ListBooks returns the book identifiers present in a Bible, in
// canonical Scripture order.
func (s *Store) ListBooks(bible string) ([]int, error) {
	names, err := scanDir(s.bibleFolder(bible), isNumeric)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(names))
	for _, n := range names {
		id, _ := strconv.Atoi(n)
		ids = append(ids, id)
	}
	usfm.SortBooks(ids)
	return ids, nil
}

// DeleteBook permanently removes one book and every chapter it holds.
func (s *Store) DeleteBook(bible string, book int) error {
	return os.RemoveAll(s.bookFolder(bible, book))
}

// ListChapters returns the chapter numbers present for a book, ascending.
func (s *Store) ListChapters(bible string, book int) ([]int, error) {
	names, err := scanDir(s.bookFolder(bible, book), isNumeric)
	if err != nil {
		return nil, err
	}
	nums := make([]int, 0, len(names))
	for _, n := range names {
		v, _ := strconv.Atoi(n)
		nums = append(nums, v)
	}
	sort.Ints(nums)
	return nums, nil
}

// DeleteChapter permanently removes one chapter and every revision of it.
func (s *Store) DeleteChapter(bible string, book, chapter int) error {
	return os.RemoveAll(s.chapterFolder(bible, book, chapter))
}

// latestRevisionFile returns the revision file carrying the highest id,
// and that id, or ("", 0, false) if the chapter has no revisions yet.
func (s *Store) latestRevisionFile(bible string, book, chapter int) (string, int, bool) {
	folder := s.chapterFolder(bible, book, chapter)
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", 0, false
	}
	best := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, err := strconv.Atoi(e.Name()); err == nil && id > best {
			best = id
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return filepath.Join(folder, strconv.Itoa(best)), best, true
}

// GetChapter returns the most recent USFM text stored for a chapter, or
// "" if it has never been stored.
func (s *Store) GetChapter(bible string, book, chapter int) (string, error) {
	lock := s.chapterLock(bible, book, chapter)
	lock.RLock()
	defer lock.RUnlock()
	path, _, ok := s.latestRevisionFile(bible, book, chapter)
	if !ok {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read chapter: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetChapterID returns the id of the most recent revision, or NoRevision
// if the chapter has never been stored.
func (s *Store) GetChapterID(bible string, book, chapter int) int {
	lock := s.chapterLock(bible, book, chapter)
	lock.RLock()
	defer lock.RUnlock()
	_, id, ok := s.latestRevisionFile(bible, book, chapter)
	if !ok {
		return NoRevision
	}
	return id
}

// GetChapterAge returns how long ago, in seconds, the most recent
// revision was written, or NoRevision if it has never been stored.
func (s *Store) GetChapterAge(bible string, book, chapter int) int {
	lock := s.chapterLock(bible, book, chapter)
	lock.RLock()
	defer lock.RUnlock()
	path, _, ok := s.latestRevisionFile(bible, book, chapter)
	if !ok {
		return NoRevision
	}
	info, err := os.Stat(path)
	if err != nil {
		return NoRevision
	}
	return int(time.Since(info.ModTime()).Seconds())
}

// StoreChapter appends a new revision holding usfmText, retaining every
// earlier revision for later optimize passes and history. The
// write-new-revision-then-scan sequence is serialized per chapter by
// lock, so two concurrent writers can never derive the same next id;
// readers of this chapter wait for the write to finish, but readers of
// every other chapter are unaffected, per spec.md §5.
func (s *Store) StoreChapter(bible string, book, chapter int, usfmText string) error {
	lock := s.chapterLock(bible, book, chapter)
	lock.Lock()
	defer lock.Unlock()

	folder := s.chapterFolder(bible, book, chapter)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("create chapter folder: %w", err)
	}
	if usfmText != "" && !strings.HasSuffix(usfmText, "\n") {
		usfmText += "\n"
	}
	_, id, ok := s.latestRevisionFile(bible, book, chapter)
	if !ok {
		id = 0
	}
	id++
	file := filepath.Join(folder, strconv.Itoa(id))
	if err := os.WriteFile(file, []byte(usfmText), 0644); err != nil {
		return fmt.Errorf("write chapter revision: %w", err)
	}
	return nil
}

// Optimize walks every chapter in every book of every Bible, dropping
// zero-length revisions (an accidental empty save) and pruning history
// down to retain revisions, always keeping the most recent ones.
func (s *Store) Optimize(retain int) error {
	bibles, err := s.ListBibles()
	if err != nil {
		return err
	}
	for _, bible := range bibles {
		books, err := s.ListBooks(bible)
		if err != nil {
			return err
		}
		for _, book := range books {
			chapters, err := s.ListChapters(bible, book)
			if err != nil {
				return err
			}
			for _, chapter := range chapters {
				if err := s.optimizeChapter(bible, book, chapter, retain); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Store) optimizeChapter(bible string, book, chapter, retain int) error {
	lock := s.chapterLock(bible, book, chapter)
	lock.Lock()
	defer lock.Unlock()

	folder := s.chapterFolder(bible, book, chapter)
	entries, err := os.ReadDir(folder)
	if err != nil {
		return err
	}

	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			if err := os.Remove(filepath.Join(folder, e.Name())); err != nil {
				return err
			}
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if retain < 0 {
		retain = 0
	}
	if len(ids) <= retain {
		return nil
	}
	for _, id := range ids[:len(ids)-retain] {
		if err := os.Remove(filepath.Join(folder, strconv.Itoa(id))); err != nil {
			return err
		}
	}
	return nil
}

func isNumeric(name string) bool {
	_, err := strconv.Atoi(name)
	return err == nil
}

func scanDir(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if keep != nil && !keep(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
