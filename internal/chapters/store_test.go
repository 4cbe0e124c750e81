package chapters

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStoreChapterAppendsRevisionsAndReadsLatest(t *testing.T) {
	store := newTestStore(t)

	if id := store.GetChapterID("eng", 40, 1); id != NoRevision {
		t.Fatalf("expected NoRevision before any save, got %d", id)
	}

	if err := store.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 one\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}
	if err := store.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 two\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}

	got, err := store.GetChapter("eng", 40, 1)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if got != "\\c 1\n\\p\n\\v 1 two" {
		t.Fatalf("expected latest revision, got %q", got)
	}
	if id := store.GetChapterID("eng", 40, 1); id != 2 {
		t.Fatalf("expected revision id 2, got %d", id)
	}
}

func TestListBooksSortsInCanonicalOrder(t *testing.T) {
	store := newTestStore(t)
	// Mark, id 41, then Matthew, id 40: filesystem order is 40 before 41
	// textually but canonical Scripture order should still win regardless.
	if err := store.StoreChapter("eng", 41, 1, "\\c 1\n\\p\n\\v 1 a\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}
	if err := store.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 a\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}

	books, err := store.ListBooks("eng")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 || books[0] != 40 || books[1] != 41 {
		t.Fatalf("expected [40 41] in canonical order, got %v", books)
	}
}

func TestOptimizeDropsEmptyRevisionsAndPrunesHistory(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 rev\n"); err != nil {
			t.Fatalf("StoreChapter: %v", err)
		}
	}
	if err := store.StoreChapter("eng", 40, 1, ""); err != nil {
		t.Fatalf("StoreChapter empty: %v", err)
	}

	if err := store.Optimize(2); err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	chapters, err := store.ListChapters("eng", 40)
	if err != nil || len(chapters) != 1 {
		t.Fatalf("expected chapter 1 to survive optimize, got %v err=%v", chapters, err)
	}
	got, err := store.GetChapter("eng", 40, 1)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if got != "\\c 1\n\\p\n\\v 1 rev" {
		t.Fatalf("expected a surviving revision, got %q", got)
	}
}

func TestDeleteBibleRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	if err := store.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 a\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}
	if err := store.DeleteBible("eng"); err != nil {
		t.Fatalf("DeleteBible: %v", err)
	}
	bibles, err := store.ListBibles()
	if err != nil {
		t.Fatalf("ListBibles: %v", err)
	}
	for _, b := range bibles {
		if b == "eng" {
			t.Fatalf("expected eng to be gone, got %v", bibles)
		}
	}
}
