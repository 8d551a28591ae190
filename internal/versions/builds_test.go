package versions

import (
	"slices"
	"testing"
	"time"
)

func TestCompareBuilds(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.21.8-58.0.9", "1.21.8-58.0.10", -1},
		{"1.21.8-58.0.10", "1.21.8-58.0.9", 1},
		{"1.21.8-58", "1.21.8-58-rc1", -1},
		{"1.21.8-58-rc1", "1.21.8-58", 1},
		{"1.21.8-58.0", "1.21.8-58", 0},
		{"1.21.8-58.1", "1.21.8-58", 1},
		{"1.20.1-47.1.0", "1.20.1-47.1.0", 0},
		// string fallback
		{"1.12.2-14.23.5.2860", "1.12.2-14.23.5.2859", 1},
		{"1.7.10-10.13.4.1614-1.7.10", "1.7.10-10.13.4.1558-1.7.10", 1},
		{"1.7.10-10.13.4.1614-1.7.10", "1.7.10-10.13.4.1614-1.7.10", 0},
	}

	for _, tt := range tests {
		if got := CompareBuilds(tt.a, tt.b, nil); got != tt.want {
			t.Errorf("CompareBuilds(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareElementDecisionTable(t *testing.T) {
	// absent marks an element past the end of its side.
	const absent = "<absent>"
	tests := []struct {
		a, b string
		want int
	}{
		{"10", "9", 1},
		{absent, "0", 0},
		{absent, "1", -1},
		{"-", "a", -1},
		{"a", "-", 1},
		{"-", "-", 0},
		{"58-rc1", "58-rc2", -1},
		{"58-rc1", "59-rc1", -1},
		{"58-rc1", "58-rc1", 0},
		{"beta", "alpha", 1},
		{absent, "rc1", -1},
		// a present empty element is not a number
		{"", "0", -1},
		{"0", "", 1},
		{"", "", 0},
	}

	for _, tt := range tests {
		a, okA := tt.a, tt.a != absent
		b, okB := tt.b, tt.b != absent
		if !okA {
			a = ""
		}
		if !okB {
			b = ""
		}
		if got := compareElement(a, okA, b, okB); got != tt.want {
			t.Errorf("compareElement(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareBuildsEmptyElement(t *testing.T) {
	if got := CompareBuilds("1.21.8-58..1", "1.21.8-58.0.1", nil); got != -1 {
		t.Errorf("CompareBuilds(58..1, 58.0.1) = %d, want -1", got)
	}
	if got := CompareBuilds("1.21.8-58.0.1", "1.21.8-58..1", nil); got != 1 {
		t.Errorf("CompareBuilds(58.0.1, 58..1) = %d, want 1", got)
	}
}

func TestCompareBuildsUsesReleaseTimes(t *testing.T) {
	times := fakeTimes{
		"1.20.1": time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC),
		"1.20.2": time.Date(2023, 9, 20, 0, 0, 0, 0, time.UTC),
	}

	// Lexicographically 47 < 48, but the base versions decide first.
	if got := CompareBuilds("1.20.2-48.0.1", "1.20.1-47.1.0", times); got != 1 {
		t.Errorf("expected 1.20.2 build to sort after 1.20.1 build, got %d", got)
	}
	// "1.9" is unknown, so the build components decide.
	if got := CompareBuilds("1.9-12.16.0.1", "1.20.1-47.1.0", times); got != -1 {
		t.Errorf("expected fallback to build compare, got %d", got)
	}
	// Same base: tie-break on build.
	if got := CompareBuilds("1.20.1-47.1.3", "1.20.1-47.1.10", times); got != -1 {
		t.Errorf("expected build tie-break, got %d", got)
	}
}

func TestCompareBuildsReflexive(t *testing.T) {
	ids := []string{"1.21.8-58.0.10", "1.21.8-58-rc1", "1.7.10-10.13.4.1614-1.7.10", "1.8-11.14.4.1577", "nodash"}
	for _, id := range ids {
		if got := CompareBuilds(id, id, nil); got != 0 {
			t.Errorf("CompareBuilds(%q, %q) = %d, want 0", id, id, got)
		}
	}
}

func TestSortBuilds(t *testing.T) {
	builds := []string{"1.21.8-58.0.10", "1.21.8-58.0.2", "1.21.8-58.0.9", "1.21.8-58.1.0"}
	slices.SortFunc(builds, func(a, b string) int { return CompareBuilds(a, b, nil) })

	want := []string{"1.21.8-58.0.2", "1.21.8-58.0.9", "1.21.8-58.0.10", "1.21.8-58.1.0"}
	if !slices.Equal(builds, want) {
		t.Errorf("sorted = %v, want %v", builds, want)
	}
}

func TestBaseOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.21.8-58.0.10", "1.21.8", true},
		{"1.7.10-10.13.4.1614-1.7.10", "1.7.10", true},
		{"-58", "", false},
		{"58.0.10", "", false},
	}

	for _, tt := range tests {
		got, ok := BaseOf(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BaseOf(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
