package auth

import (
	"net/http"
	"strings"
)

// rule grants access to requests matching match. read applies to safe
// methods and write to everything else.
type rule struct {
	match func(path string) bool
	read  Role
	write Role
}

func exact(p string) func(string) bool {
	return func(path string) bool { return path == p }
}

func prefix(p string) func(string) bool {
	return func(path string) bool { return strings.HasPrefix(path, p) }
}

func settlementBill(path string) bool {
	return strings.HasPrefix(path, "/api/v1/settlements/") && strings.HasSuffix(path, "/bill")
}

// Order matters: the first matching rule wins.
var deliveryRules = []rule{
	{match: exact("/api/delivery/health"), read: RoleViewer, write: RoleViewer},
	{match: prefix("/api/delivery/"), read: RoleOperator, write: RoleOperator},
	{match: exact("/api/v1/settlements/generate"), read: RoleAdmin, write: RoleAdmin},
	{match: exact("/api/v1/couriers/reset-daily"), read: RoleAdmin, write: RoleAdmin},
	{match: settlementBill, read: RoleAdmin, write: RoleAdmin},
	{match: exact("/api/v1/settlements"), read: RoleViewer, write: RoleAdmin},
	{match: prefix("/api/v1/settlements/"), read: RoleViewer, write: RoleAdmin},
	{match: prefix("/api/v1/partners/"), read: RoleViewer, write: RoleViewer},
	{match: prefix("/api/"), read: RoleViewer, write: RoleOperator},
}

// Policy maps requests to the role they require.
type Policy struct {
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
	rules          []rule
}

// NewDefaultPolicy builds the service policy. Exempt paths and prefixes skip
// authentication entirely.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{exemptPaths: set, exemptPrefixes: exemptPrefixes, rules: deliveryRules}
}

// IsExempt reports whether the request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.exemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, pre := range p.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, pre) {
			return true
		}
	}
	return false
}

// RequiredRole returns false for paths outside the protected API.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	for _, rl := range p.rules {
		if !rl.match(r.URL.Path) {
			continue
		}
		if isSafeMethod(r.Method) {
			return rl.read, true
		}
		return rl.write, true
	}
	return "", false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
