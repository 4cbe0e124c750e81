package syncproto

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/logger"
)

// Transport sends one encoded wire request and returns the raw response
// body, the abstraction a real HTTP or in-process client implements.
type Transport interface {
	Do(ctx context.Context, body string) (string, error)
}

// LocalChapter is what the client-side store reports about one chapter
// it holds, enough to decide whether to push (B7) or pull (B8).
type LocalChapter struct {
	USFM     string
	Ancestor string // the USFM last pulled from, or pushed to, the server
}

// LocalStore is the subset of the client's own chapter cache the Walker
// needs to decide what differs and in which direction to sync it.
type LocalStore interface {
	Bibles() []string
	Books(bible string) []int
	Chapters(bible string, book int) []int
	Chapter(bible string, book, chapter int) LocalChapter
	TotalChecksum() string
	BibleChecksum(bible string) string
	BookChecksum(bible string, book int) string
	ChapterChecksum(bible string, book, chapter int) string
	Commit(bible string, book, chapter int, usfm string)
}

// Walker descends the Checksum Ladder from the client side, per
// spec.md §4.7: compute local total checksum, query B0; if they match,
// done; otherwise descend B1..B6 only where checksums mismatch, then
// push (B7) or pull (B8) the chapters that differ.
type Walker struct {
	Transport  Transport
	Local      LocalStore
	Attempts   uint
	Delay      time.Duration
	HungCeiling time.Duration
}

// NewWalker builds a Walker with spec.md's 15-minute hung-task ceiling
// and a modest retry budget for transient communication errors.
func NewWalker(transport Transport, local LocalStore) *Walker {
	return &Walker{Transport: transport, Local: local, Attempts: 5, Delay: time.Second, HungCeiling: 15 * time.Minute}
}

// Run performs one full sync pass, descending only where checksums
// disagree. The whole pass runs under one HungCeiling deadline: if the
// pass exceeds it, its context is cancelled and the pass returns an error
// for the caller to retry on its next scheduler tick, per spec.md §5.
func (w *Walker) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.HungCeiling)
	defer cancel()

	total := Request{Action: ActionTotalChecksum}
	resp, err := w.send(ctx, total)
	if err != nil {
		return fmt.Errorf("syncproto: total checksum: %w", err)
	}
	if resp == w.Local.TotalChecksum() {
		return nil
	}

	biblesResp, err := w.send(ctx, Request{Action: ActionListBibles})
	if err != nil {
		return fmt.Errorf("syncproto: list bibles: %w", err)
	}
	_, bibles := DecodeList(biblesResp)

	for _, bible := range bibles {
		remoteBibleSum, err := w.send(ctx, Request{Action: ActionBibleChecksum, Bible: bible})
		if err != nil {
			return fmt.Errorf("syncproto: bible checksum %s: %w", bible, err)
		}
		if remoteBibleSum == w.Local.BibleChecksum(bible) {
			continue
		}
		if err := w.syncBible(ctx, bible); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) syncBible(ctx context.Context, bible string) error {
	booksResp, err := w.send(ctx, Request{Action: ActionListBooks, Bible: bible})
	if err != nil {
		return fmt.Errorf("syncproto: list books %s: %w", bible, err)
	}
	_, bookStrings := DecodeList(booksResp)

	for _, bs := range bookStrings {
		book := atoi(bs)
		remoteBookSum, err := w.send(ctx, Request{Action: ActionBookChecksum, Bible: bible, Book: book})
		if err != nil {
			return fmt.Errorf("syncproto: book checksum %s %d: %w", bible, book, err)
		}
		if remoteBookSum == w.Local.BookChecksum(bible, book) {
			continue
		}
		if err := w.syncBook(ctx, bible, book); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) syncBook(ctx context.Context, bible string, book int) error {
	chaptersResp, err := w.send(ctx, Request{Action: ActionListChapters, Bible: bible, Book: book})
	if err != nil {
		return fmt.Errorf("syncproto: list chapters %s %d: %w", bible, book, err)
	}
	_, chapterStrings := DecodeList(chaptersResp)

	for _, cs := range chapterStrings {
		chapter := atoi(cs)
		remoteChapterSum, err := w.send(ctx, Request{Action: ActionChapterChecksum, Bible: bible, Book: book, Chapter: chapter})
		if err != nil {
			return fmt.Errorf("syncproto: chapter checksum %s %d:%d: %w", bible, book, chapter, err)
		}
		local := w.Local.Chapter(bible, book, chapter)
		if remoteChapterSum == w.Local.ChapterChecksum(bible, book, chapter) {
			continue
		}
		if err := w.syncChapter(ctx, bible, book, chapter, local); err != nil {
			return err
		}
	}
	return nil
}

// syncChapter pushes the local edit (B7) when the client holds an
// ancestor for this chapter (meaning it has a pending local edit to
// send). It then pulls the server's copy (B8) and commits that locally;
// after a push, that copy holds the server's merge of the edit. B7
// answers with a checksum only, so the pull is what brings the text back.
func (w *Walker) syncChapter(ctx context.Context, bible string, book, chapter int, local LocalChapter) error {
	if local.Ancestor != "" && local.USFM != local.Ancestor {
		_, err := w.send(ctx, Request{
			Action: ActionSendChapter, Bible: bible, Book: book, Chapter: chapter,
			OldUSFM: local.Ancestor, NewUSFM: local.USFM,
			ClientChecksum: checksum.Hash(local.Ancestor + local.USFM),
		})
		if err != nil {
			return fmt.Errorf("syncproto: send chapter %s %d:%d: %w", bible, book, chapter, err)
		}
	}

	resp, err := w.send(ctx, Request{Action: ActionGetChapter, Bible: bible, Book: book, Chapter: chapter})
	if err != nil {
		return fmt.Errorf("syncproto: get chapter %s %d:%d: %w", bible, book, chapter, err)
	}
	_, payload, _ := strings.Cut(resp, "\n")
	w.Local.Commit(bible, book, chapter, payload)
	return nil
}

// send encodes req, transmits it with a bounded retry (spec.md §7's
// "communication error" kind: the client logs and retries on the next
// scheduler tick; within one pass, transient failures get a short,
// local retry budget first).
func (w *Walker) send(ctx context.Context, req Request) (string, error) {
	var result string
	err := retry.Do(
		func() error {
			resp, err := w.Transport.Do(ctx, EncodeRequest(req))
			if err != nil {
				return err
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(w.Attempts),
		retry.Delay(w.Delay),
	)
	if err != nil {
		logger.GetAppLogger().Warnf("syncproto: action %d failed after retries: %v", req.Action, err)
		return "", err
	}
	return result, nil
}
