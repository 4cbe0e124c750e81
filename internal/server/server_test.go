package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hhc/scripture-sync/internal/chapters"
	"hhc/scripture-sync/internal/checksum"
	"hhc/scripture-sync/internal/save"
	"hhc/scripture-sync/internal/session"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/syncproto"
	"hhc/scripture-sync/internal/usfm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopNotifier struct{}

func (noopNotifier) Send(to, subject, body string) error { return nil }

func newTestAPI(t *testing.T) (*API, *chapters.Store, *sqlstore.Store) {
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

	hash, err := session.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := db.CreateUser("alice", hash, "alice@example.com", sqlstore.RoleTranslator, 1000); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	signer := session.NewTokenSigner("test-secret")
	sessions := session.New(db, signer, time.Hour, time.Millisecond, false, false)

	thresholds := usfm.Thresholds{MaxLineCountDelta: 60, MaxLengthDelta: 2000}
	pipeline := save.New(cstore, db, save.IdentityConverter{}, noopNotifier{}, thresholds)
	dispatcher := syncproto.New(cstore, db, noopNotifier{}, thresholds)

	api := New(db, sessions, pipeline, dispatcher, "ssid", false)
	return api, cstore, db
}

func login(t *testing.T, router http.Handler) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct horse"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "ssid" {
			return c
		}
	}
	t.Fatal("login: no session cookie set")
	return nil
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	api, _, _ := newTestAPI(t)
	router := api.RegisterRoutes()

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSaveRequiresAuthentication(t *testing.T) {
	api, _, _ := newTestAPI(t)
	router := api.RegisterRoutes()

	body, _ := json.Marshal(saveRequest{Bible: "eng", Book: 40, Chapter: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/save", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session cookie, got %d", rec.Code)
	}
}

func TestSaveEndToEndThenSyncSeesTheCommit(t *testing.T) {
	api, cstore, _ := newTestAPI(t)
	router := api.RegisterRoutes()
	if err := cstore.CreateBible("eng"); err != nil {
		t.Fatalf("CreateBible: %v", err)
	}

	cookie := login(t, router)

	html := "\\c 1\n\\p\n\\v 1 In the beginning.\n"
	payload := saveRequest{
		Bible: "eng", Book: 40, Chapter: 1,
		HTML:             html,
		ChecksumOfHTML:   checksum.Hash(html),
		EditorInstanceID: "tab-1",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/save", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := cstore.GetChapter("eng", 40, 1)
	if err != nil || stored == "" {
		t.Fatalf("expected the chapter to be committed, got %q, err %v", stored, err)
	}

	syncReq := httptest.NewRequest(http.MethodPost, "/sync/bibles",
		bytes.NewReader([]byte(syncproto.EncodeRequest(syncproto.Request{Action: syncproto.ActionGetChapter, Bible: "eng", Book: 40, Chapter: 1}))))
	syncReq.AddCookie(cookie)
	syncRec := httptest.NewRecorder()
	router.ServeHTTP(syncRec, syncReq)

	if syncRec.Code != http.StatusOK {
		t.Fatalf("sync get chapter: expected 200, got %d: %s", syncRec.Code, syncRec.Body.String())
	}
}
