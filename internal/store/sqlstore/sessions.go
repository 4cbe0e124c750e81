package sqlstore

import "database/sql"

// Session is one row of the sessions table: a server-side record a
// client's session token is cross-checked against, per spec.md
// §4.5.
type Session struct {
	Token          string
	Username       string
	ClientPrepared bool
	CreatedAt      int64
	LastTouchedAt  int64
	ExpiresAt      int64
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(sess Session) error {
	prepared := 0
	if sess.ClientPrepared {
		prepared = 1
	}
	return s.exec("insert session",
		`INSERT INTO sessions (token, username, client_prepared, created_at, last_touched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.Username, prepared, sess.CreatedAt, sess.LastTouchedAt, sess.ExpiresAt)
}

// GetSession fetches a session by token.
func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	var prepared int
	err := s.scanRow("select session",
		`SELECT token, username, client_prepared, created_at, last_touched_at, expires_at
		 FROM sessions WHERE token = ?`,
		[]any{token},
		&sess.Token, &sess.Username, &prepared, &sess.CreatedAt, &sess.LastTouchedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	sess.ClientPrepared = prepared != 0
	return sess, nil
}

// TouchSession extends a session's last-touched and expiry timestamps.
func (s *Store) TouchSession(token string, touchedAt, expiresAt int64) error {
	return s.exec("touch session",
		`UPDATE sessions SET last_touched_at = ?, expires_at = ? WHERE token = ?`,
		touchedAt, expiresAt, token)
}

// DeleteSession removes a session, used by logout and user-switch.
func (s *Store) DeleteSession(token string) error {
	return s.exec("delete session", `DELETE FROM sessions WHERE token = ?`, token)
}

// DeleteExpiredSessions removes every session whose expiry has passed,
// called from the hourly session-sweep background task.
func (s *Store) DeleteExpiredSessions(now int64) error {
	return s.exec("delete expired sessions", `DELETE FROM sessions WHERE expires_at < ?`, now)
}
