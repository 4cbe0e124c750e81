package sqlstore

// ChangeRecord is one append-only entry in the Change Recorder of
// spec.md §4.20: every accepted save and every merge conflict produces
// one, feeding the nightly digest mailer.
type ChangeRecord struct {
	ID           int64
	Bible        string
	Book         int
	Chapter      int
	Username     string
	Subject      string
	AncestorText string
	BeforeText   string
	AfterText    string
	OldChapterID int
	NewChapterID int
	IsConflict   bool
	CreatedAt    int64
}

// InsertChangeRecord appends one change record. Change records are
// never updated or deleted by normal operation: the table is the
// write-once ledger the nightly digest reads from.
func (s *Store) InsertChangeRecord(r ChangeRecord) error {
	conflict := 0
	if r.IsConflict {
		conflict = 1
	}
	return s.exec("insert change record",
		`INSERT INTO change_records
		   (bible, book, chapter, username, subject, ancestor_text, before_text, after_text, old_chapter_id, new_chapter_id, is_conflict, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Bible, r.Book, r.Chapter, r.Username, r.Subject, r.AncestorText, r.BeforeText, r.AfterText, r.OldChapterID, r.NewChapterID, conflict, r.CreatedAt)
}

// ChangeRecordsSince returns every change record created at or after
// since, ordered oldest first, for the nightly per-user digest build.
func (s *Store) ChangeRecordsSince(since int64) ([]ChangeRecord, error) {
	rows, err := s.query("select change records since",
		`SELECT id, bible, book, chapter, username, subject, ancestor_text, before_text, after_text, old_chapter_id, new_chapter_id, is_conflict, created_at
		 FROM change_records WHERE created_at >= ? ORDER BY created_at ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ChangeRecord
	for rows.Next() {
		var r ChangeRecord
		var conflict int
		if err := rows.Scan(&r.ID, &r.Bible, &r.Book, &r.Chapter, &r.Username, &r.Subject,
			&r.AncestorText, &r.BeforeText, &r.AfterText, &r.OldChapterID, &r.NewChapterID, &conflict, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.IsConflict = conflict != 0
		records = append(records, r)
	}
	return records, rows.Err()
}
