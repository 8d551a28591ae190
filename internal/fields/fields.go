// Package fields projects JSON documents down to a set of dotted paths.
//
// A path such as "downloads.client.url" selects one nested value. A "*"
// segment selects every key at that level, and a bare "*" selects the whole
// document.
package fields

import (
	"regexp"
	"strings"
)

const (
	Wildcard   = "*"
	linePrefix = "fields "
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Parse extracts paths from a request body made of "fields a,b.c" lines.
// Other lines are ignored. Paths are trimmed and deduplicated in order.
func Parse(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var paths []string
	for _, line := range lineBreak.Split(body, -1) {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, linePrefix)
		if !ok {
			continue
		}
		paths = appendDistinct(paths, rest)
	}
	return paths
}

// Split extracts paths from a comma-separated list such as a query value.
func Split(list string) []string {
	return appendDistinct(nil, list)
}

func appendDistinct(paths []string, list string) []string {
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" || contains(paths, p) {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func contains(paths []string, p string) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}

// Project returns a copy of doc holding only the values named by paths.
// With no paths, or a bare "*" among them, the whole document is copied.
// A path whose segment is missing, or that runs through a value which is
// not an object, is dropped without leaving anything behind.
func Project(doc map[string]any, paths []string) map[string]any {
	if len(paths) == 0 || contains(paths, Wildcard) {
		return copyObject(doc)
	}

	out := make(map[string]any)
	for _, path := range paths {
		project(out, doc, strings.Split(path, "."))
	}
	return out
}

func project(out, doc map[string]any, segs []string) {
	cur := doc
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			if seg == Wildcard {
				dst := descend(out, segs[:i])
				for k, v := range cur {
					dst[k] = copyValue(v)
				}
			}
			return
		}

		if i == len(segs)-1 {
			descend(out, segs[:i])[seg] = copyValue(v)
			return
		}

		next, ok := v.(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}

// descend walks out along segs, creating objects as it goes.
func descend(out map[string]any, segs []string) map[string]any {
	cur := out
	for _, seg := range segs {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	return cur
}

func copyObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyObject(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
