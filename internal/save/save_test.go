package save

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hhc/scripture-sync/internal/chapters"
	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/usfm"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(to, subject, body string) error {
	f.sent = append(f.sent, to+": "+subject)
	return nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *chapters.Store, *sqlstore.Store, *fakeNotifier) {
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
	notifier := &fakeNotifier{}
	p := New(cstore, db, IdentityConverter{}, notifier, usfm.Thresholds{MaxLineCountDelta: 60, MaxLengthDelta: 2000})
	p.Now = func() time.Time { return time.Unix(1000, 0) }
	return p, cstore, db, notifier
}

func req(username, bible string, book, chapter int, instance, html string) Request {
	return Request{
		Username: username, Role: sqlstore.RoleTranslator, Bible: bible, Book: book, Chapter: chapter,
		EditorInstanceID: instance, HTML: html, ChecksumOfHTML: checksum.Hash(html),
	}
}

func TestSaveFirstChapterOnEmptyStore(t *testing.T) {
	p, cstore, db, _ := newTestPipeline(t)

	html := "\\c 1\n\\p\n\\v 1 In the beginning.\n"
	res, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", html))
	if saveErr != nil {
		t.Fatalf("Save: %+v", saveErr)
	}
	if !res.Saved || res.ReloadRequired {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("expected no conflicts on first save, got %v", res.Conflicts)
	}

	stored, err := cstore.GetChapter("eng", 40, 1)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if stored == "" {
		t.Fatalf("expected chapter to be stored")
	}

	records, err := db.ChangeRecordsSince(0)
	if err != nil {
		t.Fatalf("ChangeRecordsSince: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one change record, got %d", len(records))
	}
	if records[0].OldChapterID != chapters.NoRevision || records[0].NewChapterID != 1 {
		t.Fatalf("expected old_id=%d new_id=1, got old_id=%d new_id=%d",
			chapters.NoRevision, records[0].OldChapterID, records[0].NewChapterID)
	}
}

func TestSaveCleanSecondSave(t *testing.T) {
	p, _, db, _ := newTestPipeline(t)

	first := "\\c 1\n\\p\n\\v 1 In the beginning.\n"
	if _, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", first)); saveErr != nil {
		t.Fatalf("first Save: %+v", saveErr)
	}

	second := "\\c 1\n\\p\n\\v 1 In the beginning God created.\n"
	res, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", second))
	if saveErr != nil {
		t.Fatalf("second Save: %+v", saveErr)
	}
	if !res.Saved || len(res.Conflicts) != 0 {
		t.Fatalf("unexpected result on clean second save: %+v", res)
	}

	snap, err := db.GetLoadedUSFM("alice", "eng", 40, 1, "editor-1")
	if err != nil {
		t.Fatalf("GetLoadedUSFM: %v", err)
	}
	if snap.AncestorUSFM != strings.TrimSpace(second) {
		t.Fatalf("expected snapshot to hold the second save, got %q", snap.AncestorUSFM)
	}
}

func TestSaveRejectsEmptySubmissionWithoutMutatingStore(t *testing.T) {
	p, cstore, _, _ := newTestPipeline(t)

	_, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", "   \n\t  "))
	if saveErr == nil || saveErr.Kind != KindEmptyText {
		t.Fatalf("expected empty text failure, got %+v", saveErr)
	}
	if id := cstore.GetChapterID("eng", 40, 1); id != chapters.NoRevision {
		t.Fatalf("expected no revision to have been stored, got id %d", id)
	}
}

func TestSaveRejectsInvalidUnicodeWithoutMutatingStore(t *testing.T) {
	p, cstore, _, _ := newTestPipeline(t)

	bad := "\\c 1\n\\p\n\\v 1 " + string([]byte{0xff, 0xfe}) + "\n"
	request := Request{
		Username: "alice", Role: sqlstore.RoleTranslator, Bible: "eng", Book: 40, Chapter: 1,
		EditorInstanceID: "editor-1", HTML: bad, ChecksumOfHTML: checksum.Hash(bad),
	}
	_, saveErr := p.Save(request)
	if saveErr == nil || saveErr.Kind != KindNotUnicode {
		t.Fatalf("expected not-unicode failure, got %+v", saveErr)
	}
	if id := cstore.GetChapterID("eng", 40, 1); id != chapters.NoRevision {
		t.Fatalf("expected no revision to have been stored, got id %d", id)
	}
}

func TestSaveRejectsChecksumMismatch(t *testing.T) {
	p, cstore, _, _ := newTestPipeline(t)

	request := req("alice", "eng", 40, 1, "editor-1", "\\c 1\n\\p\n\\v 1 text\n")
	request.ChecksumOfHTML = "not-the-real-checksum"

	_, saveErr := p.Save(request)
	if saveErr == nil || saveErr.Kind != KindChecksumMismatch || saveErr.Status != 409 {
		t.Fatalf("expected checksum mismatch 409, got %+v", saveErr)
	}
	if id := cstore.GetChapterID("eng", 40, 1); id != chapters.NoRevision {
		t.Fatalf("expected no revision to have been stored, got id %d", id)
	}
}

func TestSaveRejectsOverLargeReduction(t *testing.T) {
	p, cstore, _, notifier := newTestPipeline(t)

	var longVerses string
	for i := 1; i <= 80; i++ {
		longVerses += "\\v " + itoa(i) + " verse text here\n"
	}
	full := "\\c 1\n\\p\n" + longVerses
	if _, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", full)); saveErr != nil {
		t.Fatalf("seed Save: %+v", saveErr)
	}

	tiny := "\\c 1\n\\p\n\\v 1 only one verse now\n"
	_, saveErr := p.Save(req("alice", "eng", 40, 1, "editor-1", tiny))
	if saveErr == nil || saveErr.Kind != KindStoreRefusal {
		t.Fatalf("expected store refusal for over-large reduction, got %+v", saveErr)
	}
	if len(notifier.sent) == 0 {
		t.Fatalf("expected a store-refusal mail to be sent")
	}

	stored, err := cstore.GetChapter("eng", 40, 1)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if stored != strings.TrimSpace(full) {
		t.Fatalf("expected store to remain at the last good version")
	}
}

func TestSaveDeniesWriteAccessBelowTranslator(t *testing.T) {
	p, cstore, _, notifier := newTestPipeline(t)

	request := req("alice", "eng", 40, 1, "editor-1", "\\c 1\n\\p\n\\v 1 text\n")
	request.Role = sqlstore.RoleConsultant

	_, saveErr := p.Save(request)
	if saveErr == nil || saveErr.Kind != KindNoWriteAccess {
		t.Fatalf("expected no-write-access failure, got %+v", saveErr)
	}
	if id := cstore.GetChapterID("eng", 40, 1); id != chapters.NoRevision {
		t.Fatalf("expected no revision to have been stored, got id %d", id)
	}
	if len(notifier.sent) == 0 {
		t.Fatalf("expected a no-write-access mail to be sent")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
