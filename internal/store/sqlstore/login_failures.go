package sqlstore

import "database/sql"

// LoginFailure is the rate-limit state spec.md §4.5's brute-force
// mitigation keys on.
type LoginFailure struct {
	Username      string
	FailureCount  int
	LastFailureAt int64
}

// RecordLoginFailure increments a user's failure count.
func (s *Store) RecordLoginFailure(username string, at int64) error {
	return s.exec("record login failure",
		`INSERT INTO login_failures (username, failure_count, last_failure_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT(username) DO UPDATE SET
		   failure_count = failure_count + 1,
		   last_failure_at = excluded.last_failure_at`,
		username, at)
}

// GetLoginFailure fetches the failure row for username, returning a
// zero value (not an error) if the user has never failed to log in.
func (s *Store) GetLoginFailure(username string) (LoginFailure, error) {
	var f LoginFailure
	err := s.scanRow("select login failure",
		`SELECT username, failure_count, last_failure_at FROM login_failures WHERE username = ?`,
		[]any{username}, &f.Username, &f.FailureCount, &f.LastFailureAt)
	if err == sql.ErrNoRows {
		f.Username = username
		return f, nil
	}
	return f, err
}

// ClearLoginFailures resets a user's failure count after a successful login.
func (s *Store) ClearLoginFailures(username string) error {
	return s.exec("clear login failures", `DELETE FROM login_failures WHERE username = ?`, username)
}
