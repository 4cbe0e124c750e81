// Package config loads runtime configuration for the scripture sync server
// from the environment, the way the teacher's configs package does for the
// database connection.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-tunable knob used by the core.
type Config struct {
	// ServerPort is the HTTP listen port.
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// BiblesRoot is the root of the filesystem Chapter Store.
	BiblesRoot string `env:"BIBLES_ROOT" envDefault:"./data/bibles"`

	// SqliteDB is the path to the embedded relational store.
	SqliteDB string `env:"SQLITE_DB" envDefault:"./data/scripture-sync.db"`

	// JWTSecret signs the session token.
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me-in-production"`

	// SessionCookieName is the name of the session cookie.
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"ssid"`

	// SessionLifetime is how long a session stays valid. A touch extends
	// the session row's expiry by this much, but the signed token's own
	// expiry stays at login time plus this lifetime.
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`

	// LoginCooldown is the global brute-force mitigation window: after one
	// failed login, all logins fail for this long.
	LoginCooldown time.Duration `env:"LOGIN_COOLDOWN" envDefault:"1s"`

	// OpenInstallation bypasses login entirely, logging every request in
	// as the fixed admin identity. Used for demo installations.
	OpenInstallation bool `env:"OPEN_INSTALLATION" envDefault:"false"`

	// ClientPrepared bypasses login as a single-user disconnected client.
	ClientPrepared bool `env:"CLIENT_PREPARED" envDefault:"false"`

	// MaxLineCountDelta is the safely-store line-count-change bound.
	MaxLineCountDelta int `env:"MAX_LINE_COUNT_DELTA" envDefault:"60"`

	// MaxLengthDelta is the safely-store total-length-change bound, in bytes.
	MaxLengthDelta int `env:"MAX_LENGTH_DELTA" envDefault:"2000"`

	// RetentionCount is how many trailing revisions optimize() keeps per
	// chapter. A magic constant of 3 in the original; configurable here
	// without changing the default per spec.md §9.
	RetentionCount int `env:"RETENTION_COUNT" envDefault:"3"`

	// StaleChapterSentinel is not read by any component: the Chapter Store
	// reports its fixed chapters.NoRevision value for a chapter or chapter
	// id that has never been written.
	StaleChapterSentinel int `env:"STALE_CHAPTER_SENTINEL" envDefault:"100000000"`

	// SMTPHost, SMTPPort, SMTPFrom configure outbound mail notifications.
	SMTPHost string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"25"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"noreply@scripture-sync.local"`

	// RequireSecureTransport, if set, makes the sync endpoint answer
	// insecure requests with 426 Upgrade Required per spec.md §6.
	RequireSecureTransport bool `env:"REQUIRE_SECURE_TRANSPORT" envDefault:"false"`

	// HungTaskCeiling is not read by any component: the sync client's
	// watchdog ceiling is set by syncproto.NewWalker.
	HungTaskCeiling time.Duration `env:"HUNG_TASK_CEILING" envDefault:"15m"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
