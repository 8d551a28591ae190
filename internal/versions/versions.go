// Package versions orders companion release identifiers.
//
// Two orderings live here: a calendar ordering for mapping releases whose
// identifiers are dot-separated dates ("2024.11.17"), and a hybrid ordering
// for patch-distribution builds shaped "<base>-<build>" ("1.21.8-58.0.10").
package versions

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrConfiguration marks data that cannot be ordered at all. It is fatal
// for the operation that hit it and is never masked by stale fallback.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an identifier that is not shaped the way its
// ordering requires.
type ConfigurationError struct {
	Value  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %s: %v", ErrConfiguration, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", ErrConfiguration, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ReleaseTimes resolves a base version identifier to its release time.
type ReleaseTimes interface {
	ReleaseTime(id string) (time.Time, bool)
}

const dateLayout = "2006-01-02"

// ParseDate parses a dot-separated date identifier such as "2024.01.01".
func ParseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.ReplaceAll(v, ".", "-"))
	if err != nil {
		return time.Time{}, &ConfigurationError{Value: v, Reason: "not a date-shaped version", Err: err}
	}
	return t, nil
}

// CompareDates orders two date-shaped identifiers chronologically.
func CompareDates(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return ta.Compare(tb), nil
}

// SortDates sorts vs by date, newest first when desc is set. The first
// identifier that fails to parse aborts the sort and is reported.
func SortDates[T any](vs []T, key func(T) string, desc bool) error {
	parsed := make(map[string]time.Time, len(vs))
	for _, v := range vs {
		k := key(v)
		if _, ok := parsed[k]; ok {
			continue
		}
		t, err := ParseDate(k)
		if err != nil {
			return err
		}
		parsed[k] = t
	}

	slices.SortStableFunc(vs, func(a, b T) int {
		c := parsed[key(a)].Compare(parsed[key(b)])
		if desc {
			return -c
		}
		return c
	})
	return nil
}

// MaxDate returns the element with the latest date.
func MaxDate[T any](vs []T, key func(T) string) (T, bool, error) {
	var best T
	if len(vs) == 0 {
		return best, false, nil
	}
	sorted := slices.Clone(vs)
	if err := SortDates(sorted, key, true); err != nil {
		return best, false, err
	}
	return sorted[0], true, nil
}
