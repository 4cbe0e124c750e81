package syncproto

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"hhc/scripture-sync/internal/chapters"
	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/usfm"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *chapters.Store) {
	t.Helper()
	cstore, err := chapters.New(t.TempDir())
	if err != nil {
		t.Fatalf("chapters.New: %v", err)
	}
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("sqlstore.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateUser("alice", "hash", "alice@example.com", sqlstore.RoleTranslator, 1000); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	d := New(cstore, db, nil, usfm.Thresholds{MaxLineCountDelta: 60, MaxLengthDelta: 2000})
	d.Now = func() time.Time { return time.Unix(1000, 0) }
	return d, cstore
}

func TestTotalChecksumMatchesWhenStoresAgree(t *testing.T) {
	d, cstore := newTestDispatcher(t)
	if err := cstore.CreateBible("eng"); err != nil {
		t.Fatalf("CreateBible: %v", err)
	}
	if err := cstore.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 a\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}

	resp := d.Dispatch(Actor{Username: "alice", Role: sqlstore.RoleTranslator}, Request{Action: ActionTotalChecksum})
	expected, err := cstore.TotalChecksum([]string{"eng"})
	if err != nil {
		t.Fatalf("TotalChecksum: %v", err)
	}
	if resp.Status != http.StatusOK || resp.Body != expected {
		t.Fatalf("unexpected response: %+v, want %q", resp, expected)
	}
}

func TestSendChapterRejectsBadTransportChecksum(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(Actor{Username: "alice", Role: sqlstore.RoleTranslator}, Request{
		Action: ActionSendChapter, Bible: "eng", Book: 40, Chapter: 1,
		OldUSFM: "", NewUSFM: "\\c 1\n\\p\n\\v 1 a\n", ClientChecksum: "wrong",
	})
	if resp.Status != http.StatusBadRequest || resp.Body != "Checksum error" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSendChapterFirstSaveCommits(t *testing.T) {
	d, cstore := newTestDispatcher(t)
	old, new_ := "", "\\c 1\n\\p\n\\v 1 a\n"
	resp := d.Dispatch(Actor{Username: "alice", Role: sqlstore.RoleTranslator}, Request{
		Action: ActionSendChapter, Bible: "eng", Book: 40, Chapter: 1,
		OldUSFM: old, NewUSFM: new_, ClientChecksum: checksum.Hash(old + new_),
	})
	if resp.Status != http.StatusOK {
		t.Fatalf("unexpected response: %+v", resp)
	}
	stored, err := cstore.GetChapter("eng", 40, 1)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if stored == "" {
		t.Fatalf("expected chapter to be committed")
	}
}

func TestSendChapterDeniesWriteAccessButAcknowledges(t *testing.T) {
	d, cstore := newTestDispatcher(t)
	old, new_ := "", "\\c 1\n\\p\n\\v 1 a\n"
	clientChecksum := checksum.Hash(old + new_)

	resp := d.Dispatch(Actor{Username: "alice", Role: sqlstore.RoleConsultant}, Request{
		Action: ActionSendChapter, Bible: "eng", Book: 40, Chapter: 1,
		OldUSFM: old, NewUSFM: new_, ClientChecksum: clientChecksum,
	})
	if resp.Status != http.StatusOK || resp.Body != clientChecksum {
		t.Fatalf("expected pass-through acknowledgement, got %+v", resp)
	}
	if id := cstore.GetChapterID("eng", 40, 1); id != chapters.NoRevision {
		t.Fatalf("expected no mutation, got revision id %d", id)
	}
}

func TestGetChapterReturnsChecksumAndUSFM(t *testing.T) {
	d, cstore := newTestDispatcher(t)
	if err := cstore.StoreChapter("eng", 40, 1, "\\c 1\n\\p\n\\v 1 a\n"); err != nil {
		t.Fatalf("StoreChapter: %v", err)
	}
	resp := d.Dispatch(Actor{Username: "alice", Role: sqlstore.RoleTranslator}, Request{Action: ActionGetChapter, Bible: "eng", Book: 40, Chapter: 1})
	if resp.Status != http.StatusOK {
		t.Fatalf("unexpected status: %+v", resp)
	}
	sum, payload, ok := cutFirstLine(resp.Body)
	if !ok {
		t.Fatalf("expected checksum/payload split, got %q", resp.Body)
	}
	expectedSum, err := cstore.ChapterChecksum("eng", 40, 1)
	if err != nil {
		t.Fatalf("ChapterChecksum: %v", err)
	}
	if sum != expectedSum {
		t.Fatalf("expected checksum %q, got %q", expectedSum, sum)
	}
	if payload == "" {
		t.Fatalf("expected non-empty usfm payload")
	}
}

func cutFirstLine(s string) (first, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
