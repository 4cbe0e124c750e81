package syncproto

import "strconv"

// Action is one of the B0-B8 Sync Protocol action codes of spec.md §4.7.
type Action int

const (
	ActionTotalChecksum Action = iota // B0
	ActionListBibles                  // B1
	ActionBibleChecksum                // B2
	ActionListBooks                    // B3
	ActionBookChecksum                 // B4
	ActionListChapters                 // B5
	ActionChapterChecksum              // B6
	ActionSendChapter                  // B7
	ActionGetChapter                   // B8
)

// Request is the decoded form of one wire message, credentials plus
// action-specific parameters.
type Request struct {
	Action        Action
	UserHex       string
	PasswordHash  string
	RoleLevel     string
	Bible         string
	Book          int
	Chapter       int
	OldUSFM       string
	NewUSFM       string
	ClientChecksum string
}

// DecodeRequest parses a wire body into a Request.
func DecodeRequest(raw string) Request {
	f := DecodeFields(raw)
	return Request{
		Action:         Action(atoi(f[fieldAction])),
		UserHex:        f[fieldUser],
		PasswordHash:   f[fieldPasswordHash],
		RoleLevel:      f[fieldRoleLevel],
		Bible:          f[fieldBible],
		Book:           atoi(f[fieldBook]),
		Chapter:        atoi(f[fieldChapter]),
		OldUSFM:        f[fieldOldUSFM],
		NewUSFM:        f[fieldNewUSFM],
		ClientChecksum: f[fieldChecksum],
	}
}

// EncodeRequest renders a Request as a wire body.
func EncodeRequest(req Request) string {
	fields := map[string]string{
		fieldAction:       strconv.Itoa(int(req.Action)),
		fieldUser:         req.UserHex,
		fieldPasswordHash: req.PasswordHash,
		fieldRoleLevel:    req.RoleLevel,
		fieldBible:        req.Bible,
	}
	if req.Book != 0 {
		fields[fieldBook] = strconv.Itoa(req.Book)
	}
	if req.Chapter != 0 {
		fields[fieldChapter] = strconv.Itoa(req.Chapter)
	}
	if req.OldUSFM != "" {
		fields[fieldOldUSFM] = req.OldUSFM
	}
	if req.NewUSFM != "" {
		fields[fieldNewUSFM] = req.NewUSFM
	}
	if req.ClientChecksum != "" {
		fields[fieldChecksum] = req.ClientChecksum
	}
	return EncodeFields(fields)
}
