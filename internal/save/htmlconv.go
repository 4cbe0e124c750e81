package save

// HTMLConverter turns the editor's HTML representation into USFM and
// back. The real importer heuristics (turning plain prose into
// \p/\s/\v markers) are an external front-end collaborator and out of
// scope per spec.md §9's open question; IdentityConverter is a minimal
// stand-in sufficient to exercise the Save Pipeline end to end when the
// client already submits USFM-shaped text, as every literal scenario in
// spec.md §8 does.
type HTMLConverter interface {
	ToUSFM(html string) (string, error)
	ToHTML(usfmText string) (string, error)
}

// IdentityConverter treats its input as already being in the other
// format, a no-op bridge.
type IdentityConverter struct{}

func (IdentityConverter) ToUSFM(html string) (string, error) { return html, nil }
func (IdentityConverter) ToHTML(usfmText string) (string, error) { return usfmText, nil }
