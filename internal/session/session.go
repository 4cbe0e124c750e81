package session

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hhc/scripture-sync/internal/store/sqlstore"
)

// Store coordinates login, logout and session touch against the
// embedded relational store, applying the role ladder and the
// brute-force cooldown of spec.md §4.5.
type Store struct {
	db     *sqlstore.Store
	signer *TokenSigner

	lifetime         time.Duration
	cooldown         time.Duration
	openInstallation bool
	clientPrepared   bool

	// cooldownMu guards cooldownUntil, the single process-wide timestamp
	// a failed login anywhere arms: every login, even a correct one,
	// fails until that instant passes, per spec.md §4.5's "a single
	// failure arms a one-second global cooldown during which subsequent
	// logins, even correct ones, fail." Two correct logins back to back
	// never arm it themselves; only a failure does.
	cooldownMu    sync.Mutex
	cooldownUntil time.Time
}

// New builds a session Store.
func New(db *sqlstore.Store, signer *TokenSigner, lifetime time.Duration, cooldown time.Duration, openInstallation, clientPrepared bool) *Store {
	return &Store{
		db:               db,
		signer:           signer,
		lifetime:         lifetime,
		cooldown:         cooldown,
		openInstallation: openInstallation,
		clientPrepared:   clientPrepared,
	}
}

// AttemptLogin checks a username/password pair, enforcing the global
// brute-force cooldown and recording failures, then issues a session
// and a signed token on success.
func (s *Store) AttemptLogin(username, password string, now time.Time) (token string, err error) {
	if s.openInstallation {
		return s.issue(fixedAdminIdentity(), now)
	}

	if !s.allow(now) {
		return "", fmt.Errorf("session: too many login attempts, try again shortly")
	}

	user, err := s.db.GetUser(username)
	if err != nil {
		return "", fmt.Errorf("session: look up user: %w", err)
	}
	if user.Username == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		_ = s.db.RecordLoginFailure(username, now.Unix())
		s.arm(now)
		return "", fmt.Errorf("session: invalid username or password")
	}

	if err := s.db.ClearLoginFailures(username); err != nil {
		return "", fmt.Errorf("session: clear login failures: %w", err)
	}
	return s.issue(user, now)
}

// allow reports whether now is past the cooldown a prior failure armed.
// It never arms the cooldown itself; only arm does, from the failure
// branch of AttemptLogin.
func (s *Store) allow(now time.Time) bool {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	return now.After(s.cooldownUntil) || now.Equal(s.cooldownUntil)
}

// arm starts the global cooldown window after a login failure.
func (s *Store) arm(now time.Time) {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	s.cooldownUntil = now.Add(s.cooldown)
}

func (s *Store) issue(user sqlstore.User, now time.Time) (string, error) {
	expires := now.Add(s.lifetime)
	token, err := s.signer.Sign(user.Username, user.Role, now, expires)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	if err := s.db.CreateSession(sqlstore.Session{
		Token:          token,
		Username:       user.Username,
		ClientPrepared: s.clientPrepared,
		CreatedAt:      now.Unix(),
		LastTouchedAt:  now.Unix(),
		ExpiresAt:      expires.Unix(),
	}); err != nil {
		return "", fmt.Errorf("session: create session row: %w", err)
	}
	return token, nil
}

// fixedAdminIdentity is the identity an open installation logs every
// request in as, per spec.md §4.5.
func fixedAdminIdentity() sqlstore.User {
	return sqlstore.User{Username: "admin", Role: sqlstore.RoleAdmin}
}

// Verify cross-checks a client-presented token's signature against the
// server-side session row, rejecting a token whose session has been
// logged out or has expired even if the signature itself is still
// valid, per spec.md §4.5.
func (s *Store) Verify(token string, now time.Time) (sqlstore.Session, *Claims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return sqlstore.Session{}, nil, err
	}
	sess, err := s.db.GetSession(token)
	if err != nil {
		return sqlstore.Session{}, nil, fmt.Errorf("session: look up session: %w", err)
	}
	if sess.Token == "" {
		return sqlstore.Session{}, nil, fmt.Errorf("session: unknown session")
	}
	if sess.ExpiresAt < now.Unix() {
		return sqlstore.Session{}, nil, fmt.Errorf("session: expired")
	}
	return sess, claims, nil
}

// Touch extends a session's expiry on continued activity.
func (s *Store) Touch(token string, now time.Time) error {
	return s.db.TouchSession(token, now.Unix(), now.Add(s.lifetime).Unix())
}

// Logout deletes a session.
func (s *Store) Logout(token string) error {
	return s.db.DeleteSession(token)
}

// SwitchUser logs the current session out and establishes a fresh one
// for a different user. It does not check the caller's role itself.
func (s *Store) SwitchUser(oldToken, newUsername string, now time.Time) (string, error) {
	user, err := s.db.GetUser(newUsername)
	if err != nil {
		return "", fmt.Errorf("session: look up user: %w", err)
	}
	if user.Username == "" {
		return "", fmt.Errorf("session: no such user %q", newUsername)
	}
	if oldToken != "" {
		_ = s.db.DeleteSession(oldToken)
	}
	return s.issue(user, now)
}

// HashPassword hashes a plain-text password for storage.
func HashPassword(plainText string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainText), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("session: hash password: %w", err)
	}
	return string(hashed), nil
}
