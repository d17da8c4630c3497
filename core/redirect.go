package core

import "strings"

var (
	// LocalRoutes are the redirect targets handled by in-app navigation.
	LocalRoutes = []string{"signin", "signup", "request"}

	// DefaultAuthorizedDomains are the external hosts a redirect may point to.
	DefaultAuthorizedDomains = []string{"localhost", "myponyasia.com"}
)

// RedirectPolicy decides which redirect targets are safe.
//
// The domain check is a substring match on the raw target, not a parsed host
// comparison: "https://evil.com/myponyasia.com" is accepted. Any change to that
// needs a product decision.
type RedirectPolicy struct {
	Domains []string
}

// DefaultRedirectPolicy uses DefaultAuthorizedDomains.
var DefaultRedirectPolicy = RedirectPolicy{Domains: DefaultAuthorizedDomains}

// IsSafe reports whether target is a local route or mentions an authorized domain.
func (p RedirectPolicy) IsSafe(target string) bool {
	if IsLocalRoute(target) {
		return true
	}
	for _, domain := range p.Domains {
		if domain != "" && strings.Contains(target, domain) {
			return true
		}
	}
	return false
}

// IsSafeRedirect checks target against DefaultRedirectPolicy.
func IsSafeRedirect(target string) bool {
	return DefaultRedirectPolicy.IsSafe(target)
}

// IsLocalRoute reports whether target names an internal route.
func IsLocalRoute(target string) bool {
	for _, r := range LocalRoutes {
		if target == r {
			return true
		}
	}
	return false
}
