// Package notify builds the nightly per-user, per-bible digest of
// accepted edits required by spec.md §4.8: "Nightly, a notification job
// reads the day's records and generates per-user, per-bible digests of
// accepted edits."
package notify

import (
	"fmt"
	"sort"
	"strings"

	"hhc/scripture-sync/internal/mail"
	"hhc/scripture-sync/internal/store/sqlstore"
)

// recipient is a lookup from username to the address to mail.
type recipient func(username string) (email string, ok bool)

// Digest groups one user's changes across every bible they touched.
type Digest struct {
	Username string
	Entries  []sqlstore.ChangeRecord
}

// BuildDigests groups a day's change records by username, each entry
// ordered oldest first within the group.
func BuildDigests(records []sqlstore.ChangeRecord) []Digest {
	byUser := map[string][]sqlstore.ChangeRecord{}
	var order []string
	for _, r := range records {
		if _, seen := byUser[r.Username]; !seen {
			order = append(order, r.Username)
		}
		byUser[r.Username] = append(byUser[r.Username], r)
	}
	sort.Strings(order)

	digests := make([]Digest, 0, len(order))
	for _, user := range order {
		digests = append(digests, Digest{Username: user, Entries: byUser[user]})
	}
	return digests
}

// Render formats one user's digest as a plain-text mail body, bibles
// and chapters grouped for readability.
func (d Digest) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Edits accepted today across %d change(s):\n\n", len(d.Entries))

	byBible := map[string][]sqlstore.ChangeRecord{}
	var bibleOrder []string
	for _, e := range d.Entries {
		if _, seen := byBible[e.Bible]; !seen {
			bibleOrder = append(bibleOrder, e.Bible)
		}
		byBible[e.Bible] = append(byBible[e.Bible], e)
	}
	sort.Strings(bibleOrder)

	for _, bible := range bibleOrder {
		fmt.Fprintf(&b, "%s:\n", bible)
		for _, e := range byBible[bible] {
			conflictNote := ""
			if e.IsConflict {
				conflictNote = " (merge conflict resolved in your favor)"
			}
			fmt.Fprintf(&b, "  book %d chapter %d%s\n", e.Book, e.Chapter, conflictNote)
		}
	}
	return b.String()
}

// Send mails every digest to the address resolve returns for its
// username, skipping users resolve can't find an address for.
func Send(notifier mail.Notifier, digests []Digest, resolve recipient) error {
	for _, d := range digests {
		address, ok := resolve(d.Username)
		if !ok {
			continue
		}
		if err := notifier.Send(address, "Scripture Sync: your daily edit digest", d.Render()); err != nil {
			return fmt.Errorf("notify: send digest to %s: %w", d.Username, err)
		}
	}
	return nil
}
