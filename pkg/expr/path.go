// Package expr resolves `{{ ... }}` placeholders in string fields
// against the outputs and variables of a workflow run.
//
// Paths are dotted keys with optional bracketed numeric indices,
// e.g. 'body.users[0].name'.
package expr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Segment is a single step in a path: either a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// ParsePath splits a path like 'a.b[0].c' into segments.
// Malformed brackets are treated as part of the key, so that
// they fail to resolve rather than panicking.
func ParsePath(path string) []Segment {
	var segs []Segment
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := part
		var idx []int
		for strings.HasSuffix(key, "]") {
			open := strings.LastIndex(key, "[")
			if open < 0 {
				break
			}
			n, err := strconv.Atoi(key[open+1 : len(key)-1])
			if err != nil {
				break
			}
			idx = append([]int{n}, idx...)
			key = key[:open]
		}
		if key != "" {
			segs = append(segs, Segment{Key: key})
		}
		for _, i := range idx {
			segs = append(segs, Segment{Index: i, IsIndex: true})
		}
	}
	return segs
}

// Lookup walks the path from root.
// It returns false if any segment is missing.
func Lookup(root any, path string) (any, bool) {
	return walk(root, ParsePath(path))
}

// Extract is Lookup with one convenience: a leading 'response.' segment
// is dropped when the root isn't itself wrapped under a 'response' key.
// This lets 'response.body.id' address the body of an HTTP output
// regardless of how the executor shaped it.
func Extract(root any, path string) (any, bool) {
	segs := ParsePath(path)
	if len(segs) > 1 && !segs[0].IsIndex && segs[0].Key == "response" {
		if _, wrapped := child(root, segs[0]); !wrapped {
			segs = segs[1:]
		}
	}
	return walk(root, segs)
}

func walk(root any, segs []Segment) (any, bool) {
	cur := root
	for _, s := range segs {
		next, ok := child(cur, s)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v any, s Segment) (any, bool) {
	if v == nil {
		return nil, false
	}
	if s.IsIndex {
		switch t := v.(type) {
		case []any:
			if s.Index < 0 || s.Index >= len(t) {
				return nil, false
			}
			return t[s.Index], true
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, false
		}
		if s.Index < 0 || s.Index >= rv.Len() {
			return nil, false
		}
		return rv.Index(s.Index).Interface(), true
	}

	switch t := v.(type) {
	case map[string]any:
		val, ok := t[s.Key]
		return val, ok
	case map[string]string:
		val, ok := t[s.Key]
		return val, ok
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	val := rv.MapIndex(reflect.ValueOf(s.Key).Convert(rv.Type().Key()))
	if !val.IsValid() {
		return nil, false
	}
	return val.Interface(), true
}

// Keys returns the sorted keys of a map value, or nil if
// the value isn't a map.
func Keys(v any) []string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}

// Parent returns the path with its last segment removed,
// e.g. 'data.user.id' -> 'data.user'.
func Parent(path string) string {
	segs := ParsePath(path)
	if len(segs) <= 1 {
		return ""
	}
	return Join(segs[:len(segs)-1])
}

// Join renders segments back into path form.
func Join(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if !s.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}
