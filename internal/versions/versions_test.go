package versions

import (
	"errors"
	"testing"
	"time"
)

func TestCompareDates(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024.01.01", "2024.01.02", -1},
		{"2024.11.17", "2023.12.31", 1},
		{"2024.06.30", "2024.06.30", 0},
	}

	for _, tt := range tests {
		got, err := CompareDates(tt.a, tt.b)
		if err != nil {
			t.Fatalf("CompareDates(%q, %q) error: %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("CompareDates(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareDatesConfigurationError(t *testing.T) {
	_, err := CompareDates("2024.01.01", "pre1")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Value != "pre1" {
		t.Errorf("expected ConfigurationError for %q, got %v", "pre1", err)
	}
}

func TestSortDates(t *testing.T) {
	vs := []string{"2023.06.26", "2024.11.17", "2024.01.01"}
	if err := SortDates(vs, func(s string) string { return s }, true); err != nil {
		t.Fatal(err)
	}

	want := []string{"2024.11.17", "2024.01.01", "2023.06.26"}
	for i := range want {
		if vs[i] != want[i] {
			t.Errorf("SortDates()[%d] = %q, want %q", i, vs[i], want[i])
		}
	}
}

func TestSortDatesAbortsOnBadInput(t *testing.T) {
	vs := []string{"2024.01.01", "nightly"}
	err := SortDates(vs, func(s string) string { return s }, false)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestMaxDate(t *testing.T) {
	vs := []string{"2024.01.01", "2024.11.17", "2023.06.26"}
	got, ok, err := MaxDate(vs, func(s string) string { return s })
	if err != nil || !ok || got != "2024.11.17" {
		t.Errorf("MaxDate() = (%q, %v, %v)", got, ok, err)
	}

	_, ok, err = MaxDate([]string(nil), func(s string) string { return s })
	if err != nil || ok {
		t.Errorf("MaxDate(nil) = (%v, %v), want (false, nil)", ok, err)
	}
}

type fakeTimes map[string]time.Time

func (f fakeTimes) ReleaseTime(id string) (time.Time, bool) {
	t, ok := f[id]
	return t, ok
}
