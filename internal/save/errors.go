package save

// Kind is one of the Save Pipeline's failure kinds, spec.md §7.
type Kind string

const (
	KindInsufficientInput Kind = "insufficient_input"
	KindChecksumMismatch  Kind = "checksum_mismatch"
	KindEmptyText         Kind = "empty_text"
	KindNotUnicode        Kind = "not_unicode"
	KindNoWriteAccess     Kind = "no_write_access"
	KindIncorrectChapter  Kind = "incorrect_chapter"
	KindStoreRefusal      Kind = "store_refusal"
	KindMergeIrregularity Kind = "merge_irregularity"
	KindRecentSaveConflict Kind = "recent_save_conflict"
	KindCommunicationError Kind = "communication_error"
)

// Error carries a failure kind, an HTTP-equivalent status and a
// user-facing message, per spec.md §7's error table.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}
