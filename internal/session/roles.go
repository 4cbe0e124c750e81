package session

import "hhc/scripture-sync/internal/store/sqlstore"

// RequireRole reports whether actual satisfies a floor role on the
// ladder of spec.md §4.5 (guest < member < consultant < translator <
// manager < admin). Adapted from the teacher's header-based
// HasPermission check: that checked an arbitrary permission name against
// a comma-separated list, but this server's access control is a single
// ordered ladder rather than a flat permission set, so the check
// collapses to a rank comparison.
func RequireRole(actual sqlstore.Role, floor sqlstore.Role) bool {
	return actual.AtLeast(floor)
}

// CanSwitchUser reports whether actual may assume another user's
// identity outright, per spec.md §4.5's manager-and-above privilege.
func CanSwitchUser(actual sqlstore.Role) bool {
	return actual.AtLeast(sqlstore.RoleManager)
}

// CanWriteChapter reports whether actual may submit a chapter save,
// per spec.md §4.5: translator and above write, consultant and below
// are read-only collaborators.
func CanWriteChapter(actual sqlstore.Role) bool {
	return actual.AtLeast(sqlstore.RoleTranslator)
}

// CanAdministerUsers reports whether actual may create accounts or
// change roles.
func CanAdministerUsers(actual sqlstore.Role) bool {
	return actual.AtLeast(sqlstore.RoleAdmin)
}
