package session

import (
	"path/filepath"
	"testing"
	"time"

	"hhc/scripture-sync/internal/store/sqlstore"
)

func newTestSession(t *testing.T) (*Store, *sqlstore.Store) {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("sqlstore.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := db.CreateUser("alice", hash, "", sqlstore.RoleTranslator, 1000); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	signer := NewTokenSigner("test-secret")
	store := New(db, signer, time.Hour, time.Millisecond, false, false)
	return store, db
}

func TestAttemptLoginSucceedsAndVerifies(t *testing.T) {
	store, _ := newTestSession(t)
	now := time.Unix(10000, 0)

	token, err := store.AttemptLogin("alice", "correct horse", now)
	if err != nil {
		t.Fatalf("AttemptLogin: %v", err)
	}

	sess, claims, err := store.Verify(token, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.Username != "alice" || claims.Username != "alice" {
		t.Fatalf("unexpected verify result: %+v %+v", sess, claims)
	}
}

func TestAttemptLoginRejectsWrongPassword(t *testing.T) {
	store, db := newTestSession(t)
	now := time.Unix(10000, 0)

	if _, err := store.AttemptLogin("alice", "wrong password", now); err == nil {
		t.Fatalf("expected login failure")
	}
	failure, err := db.GetLoginFailure("alice")
	if err != nil {
		t.Fatalf("GetLoginFailure: %v", err)
	}
	if failure.FailureCount != 1 {
		t.Fatalf("expected one recorded failure, got %d", failure.FailureCount)
	}
}

func TestAttemptLoginEnforcesGlobalCooldown(t *testing.T) {
	store, db, err := func() (*Store, *sqlstore.Store, error) {
		db, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"), nil)
		if err != nil {
			return nil, nil, err
		}
		hash, _ := HashPassword("pw")
		if err := db.CreateUser("alice", hash, "", sqlstore.RoleTranslator, 1000); err != nil {
			return nil, nil, err
		}
		signer := NewTokenSigner("secret")
		return New(db, signer, time.Hour, time.Minute, false, false), db, nil
	}()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Unix(20000, 0)
	if _, err := store.AttemptLogin("alice", "wrong-password", now); err == nil {
		t.Fatalf("expected the wrong-password attempt to fail")
	}
	if _, err := store.AttemptLogin("alice", "pw", now); err == nil {
		t.Fatalf("expected a correct login right after a failure to be cooled down")
	}
	after := now.Add(time.Minute)
	if _, err := store.AttemptLogin("alice", "pw", after); err != nil {
		t.Fatalf("expected a correct login once the cooldown has passed, got: %v", err)
	}
}

func TestAttemptLoginAllowsBackToBackCorrectLogins(t *testing.T) {
	store, db, err := func() (*Store, *sqlstore.Store, error) {
		db, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"), nil)
		if err != nil {
			return nil, nil, err
		}
		hash, _ := HashPassword("pw")
		if err := db.CreateUser("alice", hash, "", sqlstore.RoleTranslator, 1000); err != nil {
			return nil, nil, err
		}
		signer := NewTokenSigner("secret")
		return New(db, signer, time.Hour, time.Minute, false, false), db, nil
	}()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Unix(20000, 0)
	if _, err := store.AttemptLogin("alice", "pw", now); err != nil {
		t.Fatalf("first correct login should succeed: %v", err)
	}
	if _, err := store.AttemptLogin("alice", "pw", now); err != nil {
		t.Fatalf("second correct login right after the first should also succeed: %v", err)
	}
}

func TestOpenInstallationBypassesLogin(t *testing.T) {
	store, _ := newTestSession(t)
	store.openInstallation = true
	now := time.Unix(10000, 0)

	token, err := store.AttemptLogin("anyone", "anything", now)
	if err != nil {
		t.Fatalf("AttemptLogin under open installation: %v", err)
	}
	sess, _, err := store.Verify(token, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.Username != "admin" {
		t.Fatalf("expected fixed admin identity, got %q", sess.Username)
	}
}

func TestSwitchUserIssuesFreshSessionAndDropsOld(t *testing.T) {
	store, db := newTestSession(t)
	now := time.Unix(10000, 0)
	if err := db.CreateUser("manager1", "x", "", sqlstore.RoleManager, 1000); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	oldToken, err := store.AttemptLogin("alice", "correct horse", now)
	if err != nil {
		t.Fatalf("AttemptLogin: %v", err)
	}

	newToken, err := store.SwitchUser(oldToken, "manager1", now)
	if err != nil {
		t.Fatalf("SwitchUser: %v", err)
	}
	if _, _, err := store.Verify(oldToken, now); err == nil {
		t.Fatalf("expected old session to be gone")
	}
	sess, _, err := store.Verify(newToken, now)
	if err != nil || sess.Username != "manager1" {
		t.Fatalf("expected session as manager1, got %+v err=%v", sess, err)
	}
}
