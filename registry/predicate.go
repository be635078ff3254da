package registry

// PassThrough is the predicate bound to DefaultDomain: every caller is
// allowed, matching the original implementation's PassThrough
// (name='default', always returns True).
func PassThrough(callerID string, entry *Entry) bool { return true }

// IdentityChecker reports whether callerID is permitted to use a
// restricted domain. Applications supply one (backed by their user
// store) when registering a non-default-domain predicate; this mirrors
// FilterByModule's user.has_permission(...) check in the original
// implementation, generalized from a hardcoded module check to an
// arbitrary caller/domain decision.
type IdentityChecker func(callerID, domain string) bool

// Restricted builds a Predicate for a non-default domain backed by an
// IdentityChecker, the Go analogue of FilterByModule (name='restricted').
func Restricted(domain string, check IdentityChecker) Predicate {
	return func(callerID string, entry *Entry) bool {
		return check(callerID, domain)
	}
}
