package sqlstore

import "database/sql"

// LoadedUSFM is the Editor-Load Snapshot of spec.md §4.4: the ancestor
// text a given editor instance saw when it opened a chapter, used as
// the merge base the next time that instance saves.
type LoadedUSFM struct {
	Username         string
	Bible            string
	Book             int
	Chapter          int
	EditorInstanceID string
	AncestorUSFM     string
	LoadedAt         int64
}

// RecordLoadedUSFM snapshots the ancestor text for one editor instance,
// replacing any snapshot it already held for the same chapter.
func (s *Store) RecordLoadedUSFM(snap LoadedUSFM) error {
	return s.exec("upsert loaded usfm",
		`INSERT INTO loaded_usfm (username, bible, book, chapter, editor_instance_id, ancestor_usfm, loaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(username, bible, book, chapter, editor_instance_id) DO UPDATE SET
		   ancestor_usfm = excluded.ancestor_usfm,
		   loaded_at = excluded.loaded_at`,
		snap.Username, snap.Bible, snap.Book, snap.Chapter, snap.EditorInstanceID, snap.AncestorUSFM, snap.LoadedAt)
}

// GetLoadedUSFM fetches the ancestor snapshot for one editor instance.
func (s *Store) GetLoadedUSFM(username, bible string, book, chapter int, editorInstanceID string) (LoadedUSFM, error) {
	snap := LoadedUSFM{Username: username, Bible: bible, Book: book, Chapter: chapter, EditorInstanceID: editorInstanceID}
	err := s.scanRow("select loaded usfm",
		`SELECT ancestor_usfm, loaded_at FROM loaded_usfm
		 WHERE username = ? AND bible = ? AND book = ? AND chapter = ? AND editor_instance_id = ?`,
		[]any{username, bible, book, chapter, editorInstanceID}, &snap.AncestorUSFM, &snap.LoadedAt)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	return snap, err
}

// ForgetLoadedUSFM drops an editor instance's snapshot.
func (s *Store) ForgetLoadedUSFM(username, bible string, book, chapter int, editorInstanceID string) error {
	return s.exec("delete loaded usfm",
		`DELETE FROM loaded_usfm WHERE username = ? AND bible = ? AND book = ? AND chapter = ? AND editor_instance_id = ?`,
		username, bible, book, chapter, editorInstanceID)
}
