package buf

import "testing"

func TestRangeResolveCheckedIn(t *testing.T) {
	cases := []struct {
		name       string
		r          Range
		lo, hi     int
		wantStart  int
		wantEnd    int
		wantErr    bool
	}{
		{"full", FullRange(), 0, 10, 0, 10, false},
		{"from", From(3), 0, 10, 3, 10, false},
		{"to", To(7), 0, 10, 0, 7, false},
		{"between", Between(2, 5), 0, 10, 2, 5, false},
		{"start past end", Between(8, 12), 0, 10, 0, 0, true},
		{"start before lo", Between(-1, 4), 0, 10, 0, 0, true},
		{"start after end", Between(5, 3), 0, 10, 0, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, e, err := c.r.ResolveCheckedIn(c.lo, c.hi)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got (%d, %d)", s, e)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s != c.wantStart || e != c.wantEnd {
				t.Fatalf("got (%d, %d), want (%d, %d)", s, e, c.wantStart, c.wantEnd)
			}
		})
	}
}

func TestRangeResolveClampedNeverErrors(t *testing.T) {
	r := Between(-5, 100)
	s, e := r.ResolveClamped(0, 10)
	if s != 0 || e != 10 {
		t.Fatalf("got (%d, %d), want (0, 10)", s, e)
	}

	r2 := Between(7, 3)
	s2, e2 := r2.ResolveClamped(0, 10)
	if s2 != 7 || e2 != 7 {
		t.Fatalf("got (%d, %d), want (7, 7)", s2, e2)
	}
}

func TestRangeOutOfBoundsError(t *testing.T) {
	_, _, err := Between(20, 30).ResolveCheckedIn(0, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	oob, isType := err.(*RangeOutOfBounds)
	if !isType {
		t.Fatalf("expected *RangeOutOfBounds, got %T", err)
	}
	if oob.Bounds != [2]int{0, 10} {
		t.Fatalf("unexpected bounds: %v", oob.Bounds)
	}
}
