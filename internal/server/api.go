// Package server wires the Save Pipeline and the Sync Protocol onto
// gin, per SPEC_FULL.md §4.23: the teacher's router, the teacher's
// structured-logging middleware pattern, and swaggo annotations over a
// small surface — health check, login/logout, the save endpoint, and
// the one-URL sync dispatcher.
package server

import (
	"hhc/scripture-sync/internal/save"
	"hhc/scripture-sync/internal/session"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/syncproto"
)

// API holds every collaborator the HTTP surface dispatches onto.
type API struct {
	db         *sqlstore.Store
	sessions   *session.Store
	save       *save.Pipeline
	dispatcher *syncproto.Dispatcher

	cookieName             string
	requireSecureTransport bool
}

// New builds an API over its collaborators.
func New(db *sqlstore.Store, sessions *session.Store, pipeline *save.Pipeline, dispatcher *syncproto.Dispatcher, cookieName string, requireSecureTransport bool) *API {
	return &API{
		db:                     db,
		sessions:               sessions,
		save:                   pipeline,
		dispatcher:             dispatcher,
		cookieName:             cookieName,
		requireSecureTransport: requireSecureTransport,
	}
}
