package websocket

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker validates the Origin header of upgrade requests.
// An empty allow list accepts every origin.
type OriginChecker struct {
	allowedOrigins []string
}

// NewOriginChecker creates a new origin checker.
func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{allowedOrigins: allowedOrigins}
}

// CheckOrigin reports whether the request's origin is allowed.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	if len(oc.allowedOrigins) == 0 {
		return true
	}

	// Non-browser clients don't send Origin.
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range oc.allowedOrigins {
		if matchOrigin(origin, allowed) {
			return true
		}
	}
	return false
}

// matchOrigin supports exact matches, "*" and wildcard subdomains
// (*.example.com).
func matchOrigin(origin, allowed string) bool {
	if allowed == "*" || strings.EqualFold(origin, allowed) {
		return true
	}

	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	domain := strings.ToLower(allowed[2:])
	return host == domain || strings.HasSuffix(host, "."+domain)
}
