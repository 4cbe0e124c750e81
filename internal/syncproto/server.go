package syncproto

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"hhc/scripture-sync/internal/chapters"
	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/logger"
	"hhc/scripture-sync/internal/mail"
	"hhc/scripture-sync/internal/merge"
	"hhc/scripture-sync/internal/session"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/usfm"
	"hhc/scripture-sync/internal/wire"
)

// Actor is the already-authenticated caller of a sync action. Unlike the
// raw wire credentials of spec.md §4.7 (user hex, password hash, role
// hint), the dispatcher is handed an Actor the same way the Save
// Pipeline is handed a session user: auth happens once, upstream, at the
// transport boundary (internal/session), not per dispatched action.
type Actor struct {
	Username string
	Role     sqlstore.Role
}

// Response is a dispatched action's wire response.
type Response struct {
	Status int
	Body   string
}

// Dispatcher serves the nine Bible-dimension sync actions B0-B8.
type Dispatcher struct {
	Chapters   *chapters.Store
	DB         *sqlstore.Store
	Notifier   mail.Notifier
	Thresholds usfm.Thresholds
	Now        func() time.Time
}

// New builds a Dispatcher with a real clock.
func New(chapters *chapters.Store, db *sqlstore.Store, notifier mail.Notifier, thresholds usfm.Thresholds) *Dispatcher {
	return &Dispatcher{Chapters: chapters, DB: db, Notifier: notifier, Thresholds: thresholds, Now: time.Now}
}

// Dispatch routes one request to its action handler.
func (d *Dispatcher) Dispatch(actor Actor, req Request) Response {
	switch req.Action {
	case ActionTotalChecksum:
		return d.totalChecksum()
	case ActionListBibles:
		return d.listBibles()
	case ActionBibleChecksum:
		return d.bibleChecksum(req.Bible)
	case ActionListBooks:
		return d.listBooks(req.Bible)
	case ActionBookChecksum:
		return d.bookChecksum(req.Bible, req.Book)
	case ActionListChapters:
		return d.listChapters(req.Bible, req.Book)
	case ActionChapterChecksum:
		return d.chapterChecksum(req.Bible, req.Book, req.Chapter)
	case ActionSendChapter:
		return d.sendChapter(actor, req)
	case ActionGetChapter:
		return d.getChapter(req.Bible, req.Book, req.Chapter)
	default:
		return Response{Status: http.StatusBadRequest, Body: "Unknown action"}
	}
}

func (d *Dispatcher) accessibleBibles() ([]string, error) {
	names, err := d.Chapters.ListBibles()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dispatcher) totalChecksum() Response {
	bibles, err := d.accessibleBibles()
	if err != nil {
		return communicationError()
	}
	sum, err := d.Chapters.TotalChecksum(bibles)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: sum}
}

func (d *Dispatcher) listBibles() Response {
	bibles, err := d.accessibleBibles()
	if err != nil {
		return communicationError()
	}
	sum, err := d.Chapters.TotalChecksum(bibles)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: EncodeList(sum, bibles)}
}

func (d *Dispatcher) bibleChecksum(bible string) Response {
	sum, err := d.Chapters.BibleChecksum(bible)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: sum}
}

func (d *Dispatcher) listBooks(bible string) Response {
	books, err := d.Chapters.ListBooks(bible)
	if err != nil {
		return communicationError()
	}
	sum, err := d.Chapters.BibleChecksum(bible)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: EncodeList(sum, chapters.ItoaSlice(books))}
}

func (d *Dispatcher) bookChecksum(bible string, book int) Response {
	sum, err := d.Chapters.BookChecksum(bible, book)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: sum}
}

func (d *Dispatcher) listChapters(bible string, book int) Response {
	chapterNums, err := d.Chapters.ListChapters(bible, book)
	if err != nil {
		return communicationError()
	}
	sum, err := d.Chapters.BookChecksum(bible, book)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: EncodeList(sum, chapters.ItoaSlice(chapterNums))}
}

func (d *Dispatcher) chapterChecksum(bible string, book, chapter int) Response {
	sum, err := d.Chapters.ChapterChecksum(bible, book, chapter)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: sum}
}

func (d *Dispatcher) getChapter(bible string, book, chapter int) Response {
	text, err := d.Chapters.GetChapter(bible, book, chapter)
	if err != nil {
		return communicationError()
	}
	sum := checksum.Chapter(text)
	return Response{Status: http.StatusOK, Body: sum + "\n" + wire.EscapePlus(text)}
}

// sendChapter implements B7, grounded on
// original_source/sync/bibles.cpp's sync_bibles_receive_chapter: access
// check happens after the transport checksum check but before any
// conversion or merge, exactly the order the original source uses.
func (d *Dispatcher) sendChapter(actor Actor, req Request) Response {
	// 1. Verify transport checksum against the submitted checksum.
	if checksum.Hash(req.OldUSFM+req.NewUSFM) != req.ClientChecksum {
		return Response{Status: http.StatusBadRequest, Body: "Checksum error"}
	}

	// 2. Verify write access to (bible, book).
	if !session.CanWriteChapter(actor.Role) {
		d.mailNoWriteAccess(actor.Username, req.Bible, req.Book)
		return Response{Status: http.StatusOK, Body: req.ClientChecksum}
	}

	// 3. Normalize whitespace in new_usfm.
	normalized := wire.CollapseWhitespace(req.NewUSFM)
	normalized = strings.TrimSpace(normalized)

	server, err := d.Chapters.GetChapter(req.Bible, req.Book, req.Chapter)
	if err != nil {
		return communicationError()
	}

	final := normalized
	var conflicts []merge.Conflict

	// 4/5. Merge only if there is existing server content that differs.
	if server != "" && normalized != server {
		merged, c := merge.Merge(req.OldUSFM, server, normalized, true)
		final = strings.TrimSpace(merged)
		conflicts = c
	}

	oldChapterID := d.Chapters.GetChapterID(req.Bible, req.Book, req.Chapter)
	message, explanation := usfm.SafelyStoreChapter(d.Chapters, req.Bible, req.Book, req.Chapter, final, d.Thresholds)
	if message != "" {
		d.mailStoreRefusal(actor.Username, req.Bible, req.Book, req.Chapter, explanation, final)
		return Response{Status: http.StatusUnprocessableEntity, Body: message}
	}
	newChapterID := d.Chapters.GetChapterID(req.Bible, req.Book, req.Chapter)

	now := d.Now().Unix()
	if err := d.DB.InsertChangeRecord(sqlstore.ChangeRecord{
		Bible: req.Bible, Book: req.Book, Chapter: req.Chapter, Username: actor.Username,
		Subject: "sync send chapter", AncestorText: req.OldUSFM, BeforeText: server, AfterText: final,
		OldChapterID: oldChapterID, NewChapterID: newChapterID,
		IsConflict: len(conflicts) > 0, CreatedAt: now,
	}); err != nil {
		logger.GetAppLogger().Warnf("syncproto: failed to record change for %s %d:%d: %v", req.Bible, req.Book, req.Chapter, err)
	}

	if len(conflicts) > 0 {
		logger.GetAppLogger().Audit("merge_irregularity", map[string]any{
			"username": actor.Username, "bible": req.Bible, "book": req.Book, "chapter": req.Chapter,
			"conflicts": len(conflicts),
		})
		d.mailConflict(actor.Username, req.Bible, req.Book, req.Chapter, conflicts)
	}

	sum, err := d.Chapters.ChapterChecksum(req.Bible, req.Book, req.Chapter)
	if err != nil {
		return communicationError()
	}
	return Response{Status: http.StatusOK, Body: sum}
}

func (d *Dispatcher) mailNoWriteAccess(username, bible string, book int) {
	d.mailUser(username, mail.NoWriteAccessSubject(bible, book), mail.NoWriteAccessBody(username))
}

func (d *Dispatcher) mailStoreRefusal(username, bible string, book, chapter int, explanation, attempted string) {
	d.mailUser(username, mail.StoreRefusalSubject(bible, book, chapter), mail.StoreRefusalBody(explanation, attempted))
}

func (d *Dispatcher) mailConflict(username, bible string, book, chapter int, conflicts []merge.Conflict) {
	d.mailUser(username, mail.ConflictSubject(bible, book, chapter), mail.ConflictBody(conflicts))
}

func (d *Dispatcher) mailUser(username, subject, body string) {
	if d.Notifier == nil {
		return
	}
	user, err := d.DB.GetUser(username)
	if err != nil || user.Email == "" {
		return
	}
	if err := d.Notifier.Send(user.Email, subject, body); err != nil {
		logger.GetAppLogger().Warnf("syncproto: notify %s failed: %v", username, err)
	}
}

func communicationError() Response {
	return Response{Status: http.StatusInternalServerError, Body: "Communication error"}
}
