package versions

import (
	"cmp"
	"strconv"
	"strings"
)

// marker is the bare separator that sorts before any other element.
const marker = "-"

// BaseOf returns the base version prefix of a "<base>-<build>" identifier.
func BaseOf(build string) (string, bool) {
	dash := strings.IndexByte(build, '-')
	if dash <= 0 {
		return "", false
	}
	return build[:dash], true
}

// BuildPart returns everything after the first "-", or the whole
// identifier when there is none.
func BuildPart(build string) string {
	return build[strings.IndexByte(build, '-')+1:]
}

// CompareBuilds orders patch-distribution build identifiers.
//
// When both embedded base versions resolve through times, the base release
// time decides first. Otherwise, or on a tie, the build components are
// compared element by element. times may be nil.
func CompareBuilds(a, b string, times ReleaseTimes) int {
	if times != nil {
		if c, ok := compareBases(a, b, times); ok && c != 0 {
			return c
		}
	}

	as := strings.Split(BuildPart(a), ".")
	bs := strings.Split(BuildPart(b), ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		ea, okA := at(as, i)
		eb, okB := at(bs, i)
		if c := compareElement(ea, okA, eb, okB); c != 0 {
			return c
		}
	}
	return 0
}

func compareBases(a, b string, times ReleaseTimes) (int, bool) {
	baseA, okA := BaseOf(a)
	baseB, okB := BaseOf(b)
	if !okA || !okB {
		return 0, false
	}
	ta, okA := times.ReleaseTime(baseA)
	tb, okB := times.ReleaseTime(baseB)
	if !okA || !okB {
		return 0, false
	}
	return ta.Compare(tb), true
}

// at returns the element at i, or "" and false past the end.
func at(parts []string, i int) (string, bool) {
	if i < len(parts) {
		return parts[i], true
	}
	return "", false
}

// compareElement applies the element decision table:
//
//	both integers (missing = 0)       -> numeric
//	                                     (missing = "" from here on)
//	a == "-", b != "-"                -> a < b
//	a != "-", b == "-"                -> a > b
//	both contain "-"                  -> primary parts, then suffixes;
//	                                     a suffix sorts after no suffix
//	otherwise                         -> lexicographic
func compareElement(a string, okA bool, b string, okB bool) int {
	na, errA := numeric(a, okA)
	nb, errB := numeric(b, okB)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}

	switch {
	case a == marker && b != marker:
		return -1
	case a != marker && b == marker:
		return 1
	case strings.Contains(a, marker) && strings.Contains(b, marker):
		return compareSuffixed(a, b)
	default:
		return strings.Compare(a, b)
	}
}

// numeric parses a present element. An empty element that is present is
// not a number.
func numeric(s string, present bool) (int, error) {
	if !present {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func compareSuffixed(a, b string) int {
	primaryA, suffixA, hasA := strings.Cut(a, marker)
	primaryB, suffixB, hasB := strings.Cut(b, marker)
	if primaryA != primaryB {
		return strings.Compare(primaryA, primaryB)
	}

	switch {
	case hasA && hasB:
		return strings.Compare(suffixA, suffixB)
	case hasA:
		return 1 // "58-rc1" > "58"
	case hasB:
		return -1
	default:
		return 0
	}
}
