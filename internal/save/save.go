// Package save implements the Save Pipeline of SPEC_FULL.md §4.6: the
// sixteen-step path a submitted chapter edit travels from raw HTML to a
// committed USFM revision, grounded on sync/bibles.cpp's
// sync_bibles_receive_chapter, the nearest original-source analogue.
package save

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/logger"
	"hhc/scripture-sync/internal/mail"
	"hhc/scripture-sync/internal/merge"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/usfm"
	"hhc/scripture-sync/internal/wire"
)

// ChapterStore is the subset of internal/chapters.Store the pipeline uses.
type ChapterStore interface {
	usfm.ChapterStore
	GetChapterID(bible string, book, chapter int) int
}

// Request carries one submitted save, already authenticated.
type Request struct {
	Username         string
	Role             sqlstore.Role
	Bible            string
	Book             int
	Chapter          int
	EditorInstanceID string
	HTML             string
	ChecksumOfHTML   string
}

// Result is what the pipeline reports back to the client.
type Result struct {
	Saved          bool
	ReloadRequired bool
	Conflicts      []merge.Conflict
}

// Pipeline wires the collaborators the sixteen steps need.
type Pipeline struct {
	Chapters   ChapterStore
	DB         *sqlstore.Store
	Converter  HTMLConverter
	Notifier   mail.Notifier
	Thresholds usfm.Thresholds
	Now        func() time.Time
}

// New builds a Pipeline with a real clock.
func New(chapters ChapterStore, db *sqlstore.Store, converter HTMLConverter, notifier mail.Notifier, thresholds usfm.Thresholds) *Pipeline {
	return &Pipeline{Chapters: chapters, DB: db, Converter: converter, Notifier: notifier, Thresholds: thresholds, Now: time.Now}
}

// Save runs the full sixteen-step pipeline against one submission.
func (p *Pipeline) Save(req Request) (Result, *Error) {
	// 1. Verify all required fields present.
	if req.Username == "" || req.Bible == "" || req.Chapter < 0 || req.Book <= 0 || req.EditorInstanceID == "" || req.ChecksumOfHTML == "" {
		return Result{}, fail(KindInsufficientInput, http.StatusBadRequest, "The submission was missing a required field.")
	}

	// 2. Verify checksum_of_html == checksum(html).
	if checksum.Hash(req.HTML) != req.ChecksumOfHTML {
		return Result{}, fail(KindChecksumMismatch, http.StatusConflict, "Checksum error")
	}

	// 3. Normalize html.
	normalized := wire.UnescapePlus(req.HTML)
	normalized = wire.CollapseWhitespace(normalized)
	normalized = wire.NormalizeForComparison(normalized)

	// 4. If html is empty, fail.
	if normalized == "" {
		return Result{}, fail(KindEmptyText, http.StatusBadRequest, "The submitted text was empty. Nothing was saved.")
	}

	// 5. Verify the text is valid UTF-8.
	if !utf8.ValidString(req.HTML) {
		return Result{}, fail(KindNotUnicode, http.StatusBadRequest, "The submitted text was not valid Unicode UTF-8. Nothing was saved.")
	}

	// 6. Verify the session user has write access to (bible, book).
	if !req.Role.AtLeast(sqlstore.RoleTranslator) {
		p.notifyNoWriteAccess(req)
		return Result{}, fail(KindNoWriteAccess, http.StatusForbidden, "You do not have write access to this book. Nothing was saved.")
	}

	// 7. Convert HTML to USFM.
	converted, err := p.Converter.ToUSFM(req.HTML)
	if err != nil {
		return Result{}, fail(KindCommunicationError, http.StatusBadGateway, "Converting the submission to USFM failed.")
	}

	// 8. Fetch the editor's ancestor snapshot.
	snapshot, err := p.DB.GetLoadedUSFM(req.Username, req.Bible, req.Book, req.Chapter, req.EditorInstanceID)
	if err != nil {
		return Result{}, fail(KindCommunicationError, http.StatusInternalServerError, "Could not read the editor's ancestor snapshot.")
	}
	ancestor := snapshot.AncestorUSFM

	// 9. Parse the converted USFM; must be exactly one (book, chapter) fragment.
	fragments := usfm.Parse(converted, nil)
	fragment, ok := usfm.IsSingleChapter(fragments)
	if !ok || !(fragment.Book == 0 || fragment.Book == req.Book) || fragment.Chapter != req.Chapter {
		return Result{}, fail(KindIncorrectChapter, http.StatusBadRequest,
			"The submission did not resolve to exactly the chapter being edited. Nothing was saved.")
	}

	// 10. Fetch the current server text.
	server, err := p.Chapters.GetChapter(req.Bible, req.Book, req.Chapter)
	if err != nil {
		return Result{}, fail(KindCommunicationError, http.StatusInternalServerError, "Could not read the current chapter.")
	}

	final := strings.TrimSpace(fragment.USFM)
	var conflicts []merge.Conflict

	// 11. If ancestor is non-empty and differs from server, merge.
	if ancestor != "" && ancestor != server {
		merged, c := merge.Merge(ancestor, server, final, true)
		final = strings.TrimSpace(merged)
		conflicts = c
		if len(conflicts) > 0 {
			p.notifyConflict(req, conflicts)
			logger.GetAppLogger().Audit("merge_irregularity", map[string]any{
				"username": req.Username, "bible": req.Bible, "book": req.Book, "chapter": req.Chapter,
				"conflicts": len(conflicts),
			})
		}
		p.notifyRecentSaveConflict(req, ancestor, server)
	}

	// 12. Call safely_store_chapter.
	oldChapterID := p.Chapters.GetChapterID(req.Bible, req.Book, req.Chapter)
	message, explanation := usfm.SafelyStoreChapter(p.Chapters, req.Bible, req.Book, req.Chapter, final, p.Thresholds)
	if message != "" {
		p.notifyStoreRefusal(req, explanation, final)
		return Result{}, fail(KindStoreRefusal, http.StatusUnprocessableEntity, message)
	}
	newChapterID := p.Chapters.GetChapterID(req.Bible, req.Book, req.Chapter)

	now := p.Now().Unix()

	// 13. Record a Change Record with ids before and after.
	if err := p.DB.InsertChangeRecord(sqlstore.ChangeRecord{
		Bible: req.Bible, Book: req.Book, Chapter: req.Chapter, Username: req.Username,
		Subject: "chapter save", AncestorText: ancestor, BeforeText: server, AfterText: final,
		OldChapterID: oldChapterID, NewChapterID: newChapterID,
		IsConflict: len(conflicts) > 0, CreatedAt: now,
	}); err != nil {
		logger.GetAppLogger().Warnf("save: failed to record change for %s %s %d:%d: %v", req.Username, req.Bible, req.Book, req.Chapter, err)
	}

	// 14. Update the Editor-Load Snapshot.
	if err := p.DB.RecordLoadedUSFM(sqlstore.LoadedUSFM{
		Username: req.Username, Bible: req.Bible, Book: req.Book, Chapter: req.Chapter,
		EditorInstanceID: req.EditorInstanceID, AncestorUSFM: final, LoadedAt: now,
	}); err != nil {
		logger.GetAppLogger().Warnf("save: failed to update snapshot for %s %s %d:%d: %v", req.Username, req.Bible, req.Book, req.Chapter, err)
	}

	// 15. Re-convert the committed USFM to HTML and compare with the submission.
	roundTrip, err := p.Converter.ToHTML(final)
	if err == nil && wire.NormalizeForComparison(roundTrip) != wire.NormalizeForComparison(req.HTML) {
		return Result{Saved: true, ReloadRequired: true, Conflicts: conflicts}, nil
	}

	// 16. Saved cleanly.
	return Result{Saved: true, Conflicts: conflicts}, nil
}

func (p *Pipeline) notifyConflict(req Request, conflicts []merge.Conflict) {
	p.mailUser(req.Username, mail.ConflictSubject(req.Bible, req.Book, req.Chapter), mail.ConflictBody(conflicts))
}

func (p *Pipeline) notifyRecentSaveConflict(req Request, ancestor, server string) {
	p.mailUser(req.Username, mail.RecentSaveConflictSubject(req.Bible, req.Book, req.Chapter), mail.RecentSaveConflictBody(ancestor, server))
}

func (p *Pipeline) notifyStoreRefusal(req Request, explanation, attempted string) {
	p.mailUser(req.Username, mail.StoreRefusalSubject(req.Bible, req.Book, req.Chapter), mail.StoreRefusalBody(explanation, attempted))
}

func (p *Pipeline) notifyNoWriteAccess(req Request) {
	p.mailUser(req.Username, mail.NoWriteAccessSubject(req.Bible, req.Book), mail.NoWriteAccessBody(req.Username))
}

func (p *Pipeline) mailUser(username, subject, body string) {
	if p.Notifier == nil {
		return
	}
	user, err := p.DB.GetUser(username)
	if err != nil || user.Email == "" {
		return
	}
	if err := p.Notifier.Send(user.Email, subject, body); err != nil {
		logger.GetAppLogger().Warnf("save: notify %s failed: %v", username, err)
	}
}
