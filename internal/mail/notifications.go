package mail

import (
	"fmt"
	"strings"

	"hhc/scripture-sync/internal/merge"
)

// ConflictSubject and ConflictBody render the "merge irregularity" mail
// of spec.md §7: a human-readable account of every conflict a merge
// produced, enough for a human to reconstruct the divergence.
func ConflictSubject(bible string, book, chapter int) string {
	return fmt.Sprintf("Scripture Sync: conflicts merging %s book %d chapter %d", bible, book, chapter)
}

func ConflictBody(conflicts []merge.Conflict) string {
	var b strings.Builder
	b.WriteString("Your edit conflicted with another change and your version was kept.\n\n")
	for _, c := range conflicts {
		fmt.Fprintf(&b, "%s:\n  before: %q\n  theirs: %q\n  yours:  %q\n  kept:   %q\n\n",
			c.Subject, c.AncestorFragment, c.ServerFragment, c.ClientFragment, c.ResultFragment)
	}
	return b.String()
}

// RecentSaveConflictSubject and RecentSaveConflictBody render spec.md
// §7's "recent save conflict" warning: sent any time the on-disk content
// diverged from the loaded ancestor, independent of whether the merge
// itself produced a reportable conflict.
func RecentSaveConflictSubject(bible string, book, chapter int) string {
	return fmt.Sprintf("Scripture Sync: someone else also changed %s book %d chapter %d", bible, book, chapter)
}

func RecentSaveConflictBody(ancestor, server string) string {
	var b strings.Builder
	b.WriteString("The chapter changed on the server between when you loaded it and when you saved. A merge was attempted automatically.\n\n")
	fmt.Fprintf(&b, "What you loaded:\n%s\n\n", ancestor)
	fmt.Fprintf(&b, "What was on the server:\n%s\n", server)
	return b.String()
}

// StoreRefusalSubject and StoreRefusalBody render spec.md §7's "store
// refusal" mail: the safely-store gate rejected a submission, and the
// attempted text is attached so nothing is lost.
func StoreRefusalSubject(bible string, book, chapter int) string {
	return fmt.Sprintf("Scripture Sync: your save of %s book %d chapter %d was not applied", bible, book, chapter)
}

func StoreRefusalBody(explanation, attempted string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", explanation)
	b.WriteString("Your attempted text, so nothing is lost:\n\n")
	b.WriteString(attempted)
	return b.String()
}

// NoWriteAccessSubject and NoWriteAccessBody render spec.md §7's "no
// write access" mail, sent when a B7 sync send is silently discarded
// because the user lost write access between client and server.
func NoWriteAccessSubject(bible string, book int) string {
	return fmt.Sprintf("Scripture Sync: a change to %s book %d was not saved", bible, book)
}

func NoWriteAccessBody(username string) string {
	return fmt.Sprintf("%s no longer has write access to this book. The change was discarded silently on the client side to avoid a retry loop; this mail is the only record of it.", username)
}
