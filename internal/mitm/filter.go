package mitm

import "strings"

// MatchDomainSuffix reports whether host (with optional :port) matches the
// given domain suffix. It performs case-insensitive comparison and requires
// an exact match or a subdomain boundary (dot-separated).
//
// Examples:
//
//	MatchDomainSuffix("api.example.com", "example.com")  => true
//	MatchDomainSuffix("example.com:443", "example.com")  => true
//	MatchDomainSuffix("notexample.com",  "example.com")  => false
func MatchDomainSuffix(host, suffix string) bool {
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	suffix = strings.ToLower(suffix)

	if host == suffix {
		return true
	}
	return strings.HasSuffix(host, "."+suffix)
}

// TargetFilter decides whether a CONNECT destination should be intercepted.
// An empty Intercept list means "everything is a candidate unless it
// matches PassThrough"; a non-empty Intercept list narrows candidates down
// to only those matches, ignoring PassThrough.
type TargetFilter struct {
	Intercept   []string
	PassThrough []string
}

// ShouldIntercept reports whether host should be MITM'd.
func (f TargetFilter) ShouldIntercept(host string) bool {
	if len(f.Intercept) > 0 {
		return matchAny(host, f.Intercept)
	}
	return !matchAny(host, f.PassThrough)
}

func matchAny(host string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if MatchDomainSuffix(host, suffix) {
			return true
		}
	}
	return false
}
