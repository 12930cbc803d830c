package mitm

import "testing"

func TestMatchDomainSuffix(t *testing.T) {
	cases := []struct {
		host, suffix string
		want         bool
	}{
		{"api.example.com", "example.com", true},
		{"example.com:443", "example.com", true},
		{"example.com", "example.com", true},
		{"notexample.com", "example.com", false},
		{"evilexample.com", "example.com", false},
	}
	for _, c := range cases {
		if got := MatchDomainSuffix(c.host, c.suffix); got != c.want {
			t.Errorf("MatchDomainSuffix(%q, %q) = %v, want %v", c.host, c.suffix, got, c.want)
		}
	}
}

func TestTargetFilterEmptyInterceptListUsesPassThrough(t *testing.T) {
	f := TargetFilter{PassThrough: []string{"internal.example.com"}}
	if f.ShouldIntercept("internal.example.com") {
		t.Fatal("expected passthrough host to be excluded")
	}
	if !f.ShouldIntercept("api.example.com") {
		t.Fatal("expected everything else to be intercepted by default")
	}
}

func TestTargetFilterNonEmptyInterceptListIsAllowList(t *testing.T) {
	f := TargetFilter{Intercept: []string{"api.example.com"}, PassThrough: []string{"api.example.com"}}
	if !f.ShouldIntercept("api.example.com") {
		t.Fatal("expected intercept list to win over passthrough")
	}
	if f.ShouldIntercept("other.example.com") {
		t.Fatal("expected hosts outside the intercept list to be excluded")
	}
}
