// Package policy decides, per request, whether authentication is required.
// Rules are evaluated in order and the first match wins; a request matching
// no rule requires authentication.
package policy

import (
	"path"
	"strings"
)

// Requirement is the access level a matched rule demands.
type Requirement int

const (
	Authenticated Requirement = iota
	Public
)

func (r Requirement) String() string {
	if r == Public {
		return "public"
	}
	return "authenticated"
}

// AnyMethod matches every request method.
const AnyMethod = "*"

// Rule binds a method and path pattern to a requirement.
//
// Patterns are slash-separated. A segment "*" or "{name}" matches exactly one
// segment, and a trailing "/**" matches any remainder including nothing.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

type compiledRule struct {
	method   string
	segments []string
	tail     bool
	req      Requirement
}

// Policy is an immutable ordered rule table, safe for concurrent use.
type Policy struct {
	rules []compiledRule
}

func New(rules ...Rule) *Policy {
	p := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		p.rules = append(p.rules, compile(r))
	}
	return p
}

func compile(r Rule) compiledRule {
	pattern := path.Clean("/" + r.Pattern)
	cr := compiledRule{method: strings.ToUpper(r.Method), req: r.Requirement}

	if pattern == "/**" {
		cr.tail = true
		return cr
	}
	if strings.HasSuffix(pattern, "/**") {
		cr.tail = true
		pattern = strings.TrimSuffix(pattern, "/**")
	}

	for _, seg := range splitPath(pattern) {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			seg = "*"
		}
		cr.segments = append(cr.segments, seg)
	}
	return cr
}

// Evaluate returns the requirement of the first rule matching method and
// requestPath, or Authenticated if none matches.
func (p *Policy) Evaluate(method, requestPath string) Requirement {
	method = strings.ToUpper(method)
	segs := splitPath(path.Clean("/" + requestPath))

	for _, r := range p.rules {
		if r.matches(method, segs) {
			return r.req
		}
	}
	return Authenticated
}

func (r compiledRule) matches(method string, segs []string) bool {
	if r.method != AnyMethod && r.method != method {
		return false
	}
	if len(segs) < len(r.segments) {
		return false
	}
	if !r.tail && len(segs) != len(r.segments) {
		return false
	}
	for i, want := range r.segments {
		if want == "*" {
			continue
		}
		ok, err := path.Match(want, segs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
