package notify

import (
	"testing"

	"hhc/scripture-sync/internal/store/sqlstore"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(to, subject, body string) error {
	f.sent = append(f.sent, to)
	return nil
}

func TestBuildDigestsGroupsByUsername(t *testing.T) {
	records := []sqlstore.ChangeRecord{
		{Username: "alice", Bible: "eng", Book: 40, Chapter: 1, CreatedAt: 1},
		{Username: "bob", Bible: "eng", Book: 40, Chapter: 2, CreatedAt: 2},
		{Username: "alice", Bible: "eng", Book: 41, Chapter: 1, CreatedAt: 3},
	}
	digests := BuildDigests(records)
	if len(digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(digests))
	}
	if digests[0].Username != "alice" || len(digests[0].Entries) != 2 {
		t.Fatalf("unexpected alice digest: %+v", digests[0])
	}
	if digests[1].Username != "bob" || len(digests[1].Entries) != 1 {
		t.Fatalf("unexpected bob digest: %+v", digests[1])
	}
}

func TestSendSkipsUnresolvableUsers(t *testing.T) {
	digests := []Digest{
		{Username: "alice", Entries: []sqlstore.ChangeRecord{{Bible: "eng"}}},
		{Username: "ghost", Entries: []sqlstore.ChangeRecord{{Bible: "eng"}}},
	}
	notifier := &fakeNotifier{}
	resolve := func(username string) (string, bool) {
		if username == "alice" {
			return "alice@example.com", true
		}
		return "", false
	}
	if err := Send(notifier, digests, resolve); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "alice@example.com" {
		t.Fatalf("expected one mail to alice, got %v", notifier.sent)
	}
}
